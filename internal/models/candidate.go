package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CandidateStatus string

const (
	StatusPending   CandidateStatus = "pending"
	StatusScheduled CandidateStatus = "scheduled"
	StatusCompleted CandidateStatus = "completed"
)

type InterviewResult string

const (
	ResultNone      InterviewResult = ""
	ResultPending   InterviewResult = "pending"
	ResultNextRound InterviewResult = "next_round"
	ResultPass      InterviewResult = "pass"
	ResultReject    InterviewResult = "reject"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending_hire"
	OfferStatusIssued    OfferStatus = "offer_issued"
	OfferStatusConfirmed OfferStatus = "confirmed_hire"
	OfferStatusRejected  OfferStatus = "offer_rejected"
)

type SmsStatus string

const (
	SmsStatusIdle    SmsStatus = "idle"
	SmsStatusSending SmsStatus = "sending"
	SmsStatusSuccess SmsStatus = "success"
	SmsStatusFailed  SmsStatus = "failed"
)

type OAPushStatus string

const (
	OAPushStatusIdle    OAPushStatus = "idle"
	OAPushStatusPending OAPushStatus = "pending"
	OAPushStatusSuccess OAPushStatus = "success"
	OAPushStatusFailed  OAPushStatus = "failed"
)

// MaxInterviewRound caps how many rounds a candidate can go through.
const MaxInterviewRound = 3

// MaxInterviewers caps interviewer list and per-interviewer score entries.
const MaxInterviewers = 10

// InterviewerScore is one interviewer's score for a round.
type InterviewerScore struct {
	Interviewer string `json:"interviewer"`
	Score       int    `json:"score"`
}

// StringList stores a JSON array of strings in a single column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// ScoreList stores interviewer score entries as a JSON array column.
type ScoreList []InterviewerScore

func (l ScoreList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score list: %w", err)
	}
	return string(data), nil
}

func (l *ScoreList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// JSONMap stores an arbitrary JSON object column (OA payload snapshots).
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json map: %w", err)
	}
	return string(data), nil
}

func (m *JSONMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

// Candidate tracks one application's progress through the interview pipeline.
// One row per application; mutated only by the flow, offer and dispatch
// services, always under a row lock.
type Candidate struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ApplicationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	Status        CandidateStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Round         int             `gorm:"not null;default:1" json:"round"`

	InterviewAt       *time.Time `gorm:"type:timestamp" json:"interview_at,omitempty"`
	Interviewer       string     `gorm:"type:text" json:"interviewer"`
	Interviewers      StringList `gorm:"type:jsonb;default:'[]'" json:"interviewers"`
	InterviewLocation string     `gorm:"type:text" json:"interview_location"`

	Result            InterviewResult `gorm:"type:text;default:''" json:"result"`
	Score             *int            `json:"score,omitempty"`
	InterviewerScores ScoreList       `gorm:"type:jsonb;default:'[]'" json:"interviewer_scores"`
	ResultNote        string          `gorm:"type:text" json:"result_note"`
	ResultAt          *time.Time      `gorm:"type:timestamp" json:"result_at,omitempty"`

	IsHired     bool        `gorm:"not null;default:false" json:"is_hired"`
	HiredAt     *time.Time  `gorm:"type:timestamp" json:"hired_at,omitempty"`
	OfferStatus OfferStatus `gorm:"type:text;default:'pending_hire'" json:"offer_status"`

	Note string `gorm:"type:text" json:"note"`

	SmsStatus          SmsStatus  `gorm:"type:text;default:'idle'" json:"sms_status"`
	SmsRetryCount      int        `gorm:"not null;default:0" json:"sms_retry_count"`
	SmsLastAttemptAt   *time.Time `gorm:"type:timestamp" json:"sms_last_attempt_at,omitempty"`
	SmsSentAt          *time.Time `gorm:"type:timestamp" json:"sms_sent_at,omitempty"`
	SmsUpdatedAt       *time.Time `gorm:"type:timestamp" json:"sms_updated_at,omitempty"`
	SmsError           string     `gorm:"type:text" json:"sms_error"`
	SmsProviderCode    string     `gorm:"type:text" json:"sms_provider_code"`
	SmsProviderMessage string     `gorm:"type:text" json:"sms_provider_message"`
	SmsMessageID       string     `gorm:"type:text" json:"sms_message_id"`

	OAPushStatus          OAPushStatus `gorm:"type:text;default:'idle'" json:"oa_push_status"`
	OAPushRetryCount      int          `gorm:"not null;default:0" json:"oa_push_retry_count"`
	OAPushLastAttemptAt   *time.Time   `gorm:"type:timestamp" json:"oa_push_last_attempt_at,omitempty"`
	OAPushSuccessAt       *time.Time   `gorm:"type:timestamp" json:"oa_push_success_at,omitempty"`
	OAPushRequestID       string       `gorm:"type:text" json:"oa_push_request_id"`
	OAPushErrorCode       string       `gorm:"type:text" json:"oa_push_error_code"`
	OAPushErrorMessage    string       `gorm:"type:text" json:"oa_push_error_message"`
	OAPushOACode          string       `gorm:"type:text" json:"oa_push_oa_code"`
	OAPushOAMessage       string       `gorm:"type:text" json:"oa_push_oa_message"`
	OAPushPayloadSnapshot JSONMap      `gorm:"type:jsonb;default:'{}'" json:"oa_push_payload_snapshot"`

	CreatedAt time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`

	// Relations
	Application Application `gorm:"foreignKey:ApplicationID" json:"application"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CurrentRound reads the round counter, never below 1.
func (c *Candidate) CurrentRound() int {
	if c.Round < 1 {
		return 1
	}
	return c.Round
}

// RoundRecord is the immutable-after-write snapshot of one completed round.
// Keyed (candidate_id, round_no) unique; recording a result upserts it, so a
// round re-recorded before advancing overwrites rather than appends.
type RoundRecord struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uniq_candidate_round,priority:1" json:"candidate_id"`
	RoundNo           int             `gorm:"not null;uniqueIndex:uniq_candidate_round,priority:2" json:"round_no"`
	InterviewAt       *time.Time      `gorm:"type:timestamp" json:"interview_at,omitempty"`
	Interviewer       string          `gorm:"type:text" json:"interviewer"`
	Interviewers      StringList      `gorm:"type:jsonb;default:'[]'" json:"interviewers"`
	Score             *int            `json:"score,omitempty"`
	InterviewerScores ScoreList       `gorm:"type:jsonb;default:'[]'" json:"interviewer_scores"`
	Result            InterviewResult `gorm:"type:text;default:''" json:"result"`
	ResultNote        string          `gorm:"type:text" json:"result_note"`
	CreatedAt         time.Time       `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (RoundRecord) TableName() string {
	return "round_records"
}
