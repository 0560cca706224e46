package models

import "time"

/************************************************
/**** MARK: FOLLOW-UP PERIODS ****/
/************************************************/
const PERIOD_MORNING = "morning"
const PERIOD_AFTERNOON = "afternoon"
const PERIOD_NIGHT = "night"

// MaxFollowUpAttempts: 3 dias x 3 mensagens.
const MaxFollowUpAttempts = 9

// FollowUpState é a cadência de reengajamento de um lead ({sender}_followup).
type FollowUpState struct {
	Nome        string     `json:"nome"`
	Segmento    string     `json:"segmento"`
	Attempts    int        `json:"attempts"`
	StartedAt   time.Time  `json:"started_at"`
	LastSent    *time.Time `json:"last_sent"`
	LastPeriod  string     `json:"last_period"`
	LastMessage string     `json:"last_message,omitempty"`
	Cancelled   bool       `json:"cancelled"`
}

// Exhausted reports whether every attempt was already sent.
func (f *FollowUpState) Exhausted() bool {
	return f.Attempts >= MaxFollowUpAttempts
}

// Active reports whether the record may still produce sends.
func (f *FollowUpState) Active() bool {
	return f != nil && !f.Cancelled && !f.Exhausted()
}

// SentIn reports whether a send already happened on now's calendar date
// in the given period. Dates are compared in now's location.
func (f *FollowUpState) SentIn(period string, now time.Time) bool {
	if f.LastSent == nil || f.LastPeriod != period {
		return false
	}
	last := f.LastSent.In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly == ny && lm == nm && ld == nd
}

// FollowUpDay maps an attempt number (1..9) to its day (1..3).
func FollowUpDay(attempt int) int {
	if attempt < 1 {
		return 1
	}
	day := (attempt-1)/3 + 1
	if day > 3 {
		day = 3
	}
	return day
}
