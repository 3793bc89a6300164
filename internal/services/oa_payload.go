package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"recruitflow/internal/config"
	"recruitflow/internal/models"
)

// OAPayloadField is one main-table field in the OA create-request body.
type OAPayloadField struct {
	FieldName  string      `json:"fieldName"`
	FieldValue interface{} `json:"fieldValue"`
}

// OAPayload is the body sent to the OA workflow create endpoint. The snapshot
// of the payload actually sent is persisted for audit replay.
type OAPayload struct {
	WorkflowID   string
	RequestName  string
	MainData     []OAPayloadField
	RequestLevel string
	Remark       string
}

func (p *OAPayload) Snapshot() map[string]interface{} {
	mainData := make([]interface{}, 0, len(p.MainData))
	for _, field := range p.MainData {
		mainData = append(mainData, map[string]interface{}{
			"fieldName":  field.FieldName,
			"fieldValue": field.FieldValue,
		})
	}
	return map[string]interface{}{
		"workflowId":   p.WorkflowID,
		"requestName":  p.RequestName,
		"mainData":     mainData,
		"requestLevel": p.RequestLevel,
		"remark":       p.Remark,
	}
}

type fieldAccessor func(c *models.Candidate) interface{}

// candidateAccessors is the typed replacement for the old dotted-path runtime
// lookup: every source key a field mapping may reference is bound to an
// accessor function here, and unknown keys fail at config load instead of
// silently resolving to empty at push time.
var candidateAccessors = map[string]fieldAccessor{
	"application.name":      func(c *models.Candidate) interface{} { return c.Application.Name },
	"application.phone":     func(c *models.Candidate) interface{} { return c.Application.Phone },
	"application.email":     func(c *models.Candidate) interface{} { return c.Application.Email },
	"application.job_title": func(c *models.Candidate) interface{} { return c.Application.JobTitle },
	"application.region":    func(c *models.Candidate) interface{} { return c.Application.Region },
	"application.id":        func(c *models.Candidate) interface{} { return c.ApplicationID.String() },

	"candidate.id":           func(c *models.Candidate) interface{} { return c.ID.String() },
	"candidate.status":       func(c *models.Candidate) interface{} { return string(c.Status) },
	"candidate.round":        func(c *models.Candidate) interface{} { return c.CurrentRound() },
	"candidate.result":       func(c *models.Candidate) interface{} { return string(c.Result) },
	"candidate.result_note":  func(c *models.Candidate) interface{} { return c.ResultNote },
	"candidate.offer_status": func(c *models.Candidate) interface{} { return string(ResolveOfferStatus(c)) },
	"candidate.note":         func(c *models.Candidate) interface{} { return c.Note },
	"candidate.interviewer":  func(c *models.Candidate) interface{} { return c.Interviewer },
	"candidate.score": func(c *models.Candidate) interface{} {
		if c.Score == nil {
			return nil
		}
		return *c.Score
	},
	"candidate.hired_at": func(c *models.Candidate) interface{} {
		if c.HiredAt == nil {
			return nil
		}
		return *c.HiredAt
	},
	"candidate.result_at": func(c *models.Candidate) interface{} {
		if c.ResultAt == nil {
			return nil
		}
		return *c.ResultAt
	},
}

type boundMapping struct {
	oaField string
	resolve fieldAccessor
	def     string
	raw     bool
}

// OAPayloadBuilder turns a locked candidate into the OA create-request body
// according to the configured field mappings.
type OAPayloadBuilder struct {
	cfg      config.OAPushConfig
	mappings []boundMapping
}

func NewOAPayloadBuilder(cfg config.OAPushConfig) (*OAPayloadBuilder, error) {
	if len(cfg.MainFieldMappings) == 0 {
		return nil, fmt.Errorf("OA main field mappings are empty")
	}

	bound := make([]boundMapping, 0, len(cfg.MainFieldMappings))
	for _, mapping := range cfg.MainFieldMappings {
		oaField := strings.TrimSpace(mapping.OAField)
		if oaField == "" {
			return nil, fmt.Errorf("OA field mapping with empty oa_field")
		}
		source := strings.TrimSpace(mapping.Source)

		var resolve fieldAccessor
		switch {
		case source == "":
			def := mapping.Default
			resolve = func(*models.Candidate) interface{} { return def }
		case strings.HasPrefix(source, "constant."):
			literal := strings.TrimPrefix(source, "constant.")
			resolve = func(*models.Candidate) interface{} { return literal }
		default:
			accessor, ok := candidateAccessors[source]
			if !ok {
				return nil, fmt.Errorf("unknown OA field mapping source %q", source)
			}
			resolve = accessor
		}

		bound = append(bound, boundMapping{
			oaField: oaField,
			resolve: resolve,
			def:     mapping.Default,
			raw:     mapping.Raw,
		})
	}

	return &OAPayloadBuilder{cfg: cfg, mappings: bound}, nil
}

func (b *OAPayloadBuilder) Build(c *models.Candidate) (*OAPayload, error) {
	mainData := make([]OAPayloadField, 0, len(b.mappings))
	for _, mapping := range b.mappings {
		value := mapping.resolve(c)
		if (value == nil || value == "") && mapping.def != "" {
			value = mapping.def
		}
		mainData = append(mainData, OAPayloadField{
			FieldName:  mapping.oaField,
			FieldValue: normalizeFieldValue(value, mapping.raw),
		})
	}

	templateContext := map[string]string{
		"name":           c.Application.Name,
		"phone":          c.Application.Phone,
		"job":            c.Application.JobTitle,
		"candidate_id":   c.ID.String(),
		"application_id": c.ApplicationID.String(),
	}

	requestName := strings.TrimSpace(renderTemplate(b.cfg.RequestNameTemplate, templateContext))
	if requestName == "" {
		requestName = "Hire confirmation - " + c.Application.Name
	}

	return &OAPayload{
		WorkflowID:   b.cfg.WorkflowID,
		RequestName:  requestName,
		MainData:     mainData,
		RequestLevel: b.cfg.RequestLevel,
		Remark:       renderTemplate(b.cfg.RemarkTemplate, templateContext),
	}, nil
}

func normalizeFieldValue(value interface{}, raw bool) interface{} {
	if value == nil {
		return ""
	}
	if raw {
		return value
	}
	switch v := value.(type) {
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case string:
		return v
	case []interface{}, map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var templatePlaceholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// renderTemplate substitutes {key} placeholders; unknown keys render empty so
// a template typo never breaks a push.
func renderTemplate(template string, context map[string]string) string {
	if template == "" {
		return ""
	}
	return templatePlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.Trim(match, "{}")
		return context[key]
	})
}
