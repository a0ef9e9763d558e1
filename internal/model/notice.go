package model

import (
	"strconv"
	"strings"
)

// NoticeType is the category of legal dispute a questionnaire is tailored to
type NoticeType string

const (
	NoticeMoneyRecovery   NoticeType = "money-recovery"   // Unpaid loans, invoices, dues
	NoticeChequeBounce    NoticeType = "cheque-bounce"    // Dishonoured cheques (NI Act s.138)
	NoticeTenantProperty  NoticeType = "tenant-property"  // Rent, eviction, deposit disputes
	NoticeFamily          NoticeType = "family"           // Matrimonial and maintenance disputes
	NoticeConsumerBuilder NoticeType = "consumer-builder" // Defective goods, builder delays
	NoticeEmployment      NoticeType = "employment"       // Unpaid salary, wrongful termination
)

// KnownNoticeTypes returns the notice types the site's selector offers, in display order
func KnownNoticeTypes() []NoticeType {
	return []NoticeType{
		NoticeMoneyRecovery,
		NoticeChequeBounce,
		NoticeTenantProperty,
		NoticeFamily,
		NoticeConsumerBuilder,
		NoticeEmployment,
	}
}

// ParseNoticeType normalizes user input ("Money Recovery", "money_recovery") to a NoticeType.
// It does not check the type against a registry.
func ParseNoticeType(s string) NoticeType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	return NoticeType(s)
}

func (t NoticeType) String() string {
	return string(t)
}

// AnswerKind is the shape of a question's answer domain
type AnswerKind string

const (
	KindBoolean AnswerKind = "boolean" // yes / no
	KindChoice  AnswerKind = "choice"  // one of an enumerated set
	KindRange   AnswerKind = "range"   // bounded integer, weighted by band
)

// AnswerValue is a single answer as submitted by a caller
type AnswerValue string

// Canonical boolean answers
const (
	AnswerYes AnswerValue = "yes"
	AnswerNo  AnswerValue = "no"
)

// IntAnswer formats an integer answer for a range question
func IntAnswer(n int) AnswerValue {
	return AnswerValue(strconv.Itoa(n))
}

// AnswerSet maps question id to the answer recorded for it
type AnswerSet map[string]AnswerValue

// Clone returns an independent copy of the answer set
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
