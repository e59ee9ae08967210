package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReduceTable(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		records []SubscriptionRecord
		granted bool
	}{
		{name: "empty", records: nil, granted: false},
		{name: "canceled", records: []SubscriptionRecord{{ID: "a", Status: StatusCanceled}}, granted: false},
		{name: "active_and_canceled", records: []SubscriptionRecord{{ID: "a", Status: StatusActive}, {ID: "b", Status: StatusCanceled}}, granted: true},
		{name: "trialing", records: []SubscriptionRecord{{ID: "a", Status: StatusTrialing}}, granted: true},
		{name: "unknown_status", records: []SubscriptionRecord{{ID: "a", Status: Status("grace_period")}}, granted: false},
		{name: "past_due", records: []SubscriptionRecord{{ID: "a", Status: StatusPastDue, Created: now}}, granted: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.granted, Reduce(tc.records).Granted)
		})
	}
}

func TestReduceFirstGrantingRecordWins(t *testing.T) {
	records := []SubscriptionRecord{
		{ID: "sub_old_canceled", Status: StatusCanceled},
		{ID: "sub_newer", Status: StatusTrialing},
		{ID: "sub_older", Status: StatusActive},
	}
	access := Reduce(records)
	if assert.NotNil(t, access.Record) {
		assert.Equal(t, "sub_newer", access.Record.ID)
	}

	records[1].Status = StatusCanceled
	access = Reduce(records)
	if assert.NotNil(t, access.Record) {
		assert.Equal(t, "sub_older", access.Record.ID)
	}
}

func TestParseStatusNormalizes(t *testing.T) {
	assert.Equal(t, StatusActive, ParseStatus(" ACTIVE "))
	assert.True(t, ParseStatus("Trialing").Grants())
}
