package models

import "time"

type ScheduleRequest struct {
	InterviewAt       time.Time `json:"interview_at" validate:"required"`
	Interviewers      []string  `json:"interviewers"`
	InterviewLocation string    `json:"interview_location"`
	Note              *string   `json:"note"`
	SendSms           bool      `json:"send_sms"`
}

type CancelScheduleRequest struct {
	Note string `json:"note"`
}

type RecordResultRequest struct {
	Result            InterviewResult    `json:"result" validate:"required"`
	Score             *int               `json:"score"`
	InterviewerScores []InterviewerScore `json:"interviewer_scores"`
	ResultNote        string             `json:"result_note"`
}

type ConfirmHireRequest struct {
	PushOA bool `json:"push_oa"`
}

type OfferStatusRequest struct {
	OfferStatus OfferStatus `json:"offer_status" validate:"required"`
}

type CandidateResponse struct {
	Message   string     `json:"message,omitempty"`
	Candidate *Candidate `json:"candidate"`
}

// SmsResultPayload is the channel result returned to callers so operators can
// diagnose vendor-side failures without reading logs.
type SmsResultPayload struct {
	Success         bool   `json:"success"`
	ProviderCode    string `json:"provider_code"`
	ProviderMessage string `json:"provider_message"`
	RequestID       string `json:"request_id"`
	BizID           string `json:"biz_id"`
}

type OAPushResultPayload struct {
	Success      bool   `json:"success"`
	Retryable    bool   `json:"retryable"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	OACode       string `json:"oa_code"`
	OAMessage    string `json:"oa_message"`
	RequestID    string `json:"request_id"`
}

type DispatchResponse struct {
	Message   string               `json:"message"`
	Candidate *Candidate           `json:"candidate"`
	Sms       *SmsResultPayload    `json:"sms,omitempty"`
	OAPush    *OAPushResultPayload `json:"oa_push,omitempty"`
}

type ConfirmHireResponse struct {
	Message   string               `json:"message"`
	Candidate *Candidate           `json:"candidate"`
	OAPush    *OAPushResultPayload `json:"oa_push,omitempty"`
}

type OfferStatusResponse struct {
	Message        string      `json:"message"`
	Candidate      *Candidate  `json:"candidate"`
	PreviousStatus OfferStatus `json:"previous_status"`
	Changed        bool        `json:"changed"`
}
