package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitflow/internal/config"
)

func builderConfig(mappings ...config.FieldMapping) config.OAPushConfig {
	return config.OAPushConfig{
		WorkflowID:          "wf-42",
		RequestNameTemplate: "Hire confirmation - {name}",
		MainFieldMappings:   mappings,
	}
}

func TestNewOAPayloadBuilderRejectsUnknownSource(t *testing.T) {
	_, err := NewOAPayloadBuilder(builderConfig(
		config.FieldMapping{OAField: "name", Source: "candidate.shoe_size"},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shoe_size")
}

func TestNewOAPayloadBuilderRejectsEmptyMappings(t *testing.T) {
	_, err := NewOAPayloadBuilder(builderConfig())
	require.Error(t, err)
}

func TestBuildPayloadFromMappings(t *testing.T) {
	builder, err := NewOAPayloadBuilder(builderConfig(
		config.FieldMapping{OAField: "name", Source: "application.name"},
		config.FieldMapping{OAField: "job", Source: "application.job_title"},
		config.FieldMapping{OAField: "round", Source: "candidate.round"},
		config.FieldMapping{OAField: "channel", Source: "constant.recruitment"},
		config.FieldMapping{OAField: "city", Source: "application.region", Default: "Remote"},
	))
	require.NoError(t, err)

	c := newTestCandidate()
	c.Round = 2
	c.Application.Region = ""

	payload, err := builder.Build(c)
	require.NoError(t, err)

	assert.Equal(t, "wf-42", payload.WorkflowID)
	assert.Equal(t, "Hire confirmation - Chen Wei", payload.RequestName)
	require.Len(t, payload.MainData, 5)
	assert.Equal(t, OAPayloadField{FieldName: "name", FieldValue: "Chen Wei"}, payload.MainData[0])
	assert.Equal(t, OAPayloadField{FieldName: "job", FieldValue: "Backend Engineer"}, payload.MainData[1])
	assert.Equal(t, OAPayloadField{FieldName: "round", FieldValue: "2"}, payload.MainData[2])
	assert.Equal(t, OAPayloadField{FieldName: "channel", FieldValue: "recruitment"}, payload.MainData[3])
	assert.Equal(t, OAPayloadField{FieldName: "city", FieldValue: "Remote"}, payload.MainData[4])
}

func TestBuildPayloadFormatsTimestamps(t *testing.T) {
	builder, err := NewOAPayloadBuilder(builderConfig(
		config.FieldMapping{OAField: "hiredAt", Source: "candidate.hired_at"},
	))
	require.NoError(t, err)

	c := newTestCandidate()
	hiredAt := time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)
	c.HiredAt = &hiredAt

	payload, err := builder.Build(c)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01 09:30:00", payload.MainData[0].FieldValue)
}

func TestBuildPayloadRawValuePassesThrough(t *testing.T) {
	builder, err := NewOAPayloadBuilder(builderConfig(
		config.FieldMapping{OAField: "round", Source: "candidate.round", Raw: true},
	))
	require.NoError(t, err)

	payload, err := builder.Build(newTestCandidate())
	require.NoError(t, err)
	assert.Equal(t, 1, payload.MainData[0].FieldValue)
}

func TestBuildPayloadRequestNameFallback(t *testing.T) {
	cfg := builderConfig(config.FieldMapping{OAField: "name", Source: "application.name"})
	cfg.RequestNameTemplate = "{unknown_key}"
	builder, err := NewOAPayloadBuilder(cfg)
	require.NoError(t, err)

	payload, err := builder.Build(newTestCandidate())
	require.NoError(t, err)
	assert.Equal(t, "Hire confirmation - Chen Wei", payload.RequestName)
}

func TestRenderTemplateUnknownKeysEmpty(t *testing.T) {
	out := renderTemplate("hello {name}{missing}", map[string]string{"name": "x"})
	assert.Equal(t, "hello x", out)
}

func TestSnapshotShape(t *testing.T) {
	payload := &OAPayload{
		WorkflowID:  "wf-1",
		RequestName: "req",
		MainData:    []OAPayloadField{{FieldName: "name", FieldValue: "x"}},
	}
	snapshot := payload.Snapshot()
	assert.Equal(t, "wf-1", snapshot["workflowId"])
	mainData, ok := snapshot["mainData"].([]interface{})
	require.True(t, ok)
	require.Len(t, mainData, 1)
}
