package domain

import (
	"time"

	"gorm.io/datatypes"
)

// MetaVersion tags the side-channel schema so later revisions can migrate
// on read.
const MetaVersion = 1

// EventDatetimeLayout is the browser datetime-local shape the side channel
// stores event times in.
const EventDatetimeLayout = "2006-01-02T15:04"

// Meta is the decoded side channel. It carries presentation-adjacent event
// fields and the customer identity stamped at request time. Unknown keys
// are ignored; a corrupt document decodes to the zero value.
type Meta struct {
	Version          int
	EventTitle       string
	EventAddress     string
	EventAddressURL  string
	DriveURL         string
	EventDescription string
	EventDatetime    string

	CustomerRequestedAt string
	CustomerUsername    string
	CustomerFullName    string
	CustomerPhone       string
	CustomerEmail       string
}

// DecodeMeta reads the side channel leniently: missing keys default, wrong
// value types are skipped, nil input yields the zero value.
func DecodeMeta(raw datatypes.JSONMap) Meta {
	m := Meta{}
	if raw == nil {
		return m
	}
	m.Version = metaInt(raw, "version")
	m.EventTitle = metaString(raw, "event_title")
	m.EventAddress = metaString(raw, "event_address")
	m.EventAddressURL = metaString(raw, "event_address_url")
	m.DriveURL = metaString(raw, "drive_url")
	m.EventDescription = metaString(raw, "event_description")
	m.EventDatetime = metaString(raw, "event_datetime")
	m.CustomerRequestedAt = metaString(raw, "customer_requested_at")
	m.CustomerUsername = metaString(raw, "customer_username")
	m.CustomerFullName = metaString(raw, "customer_full_name")
	m.CustomerPhone = metaString(raw, "customer_phone")
	m.CustomerEmail = metaString(raw, "customer_email")
	return m
}

// Encode writes the side channel back in its storage shape.
func (m Meta) Encode() datatypes.JSONMap {
	return datatypes.JSONMap{
		"version":               MetaVersion,
		"event_title":           m.EventTitle,
		"event_address":         m.EventAddress,
		"event_address_url":     m.EventAddressURL,
		"drive_url":             m.DriveURL,
		"event_description":     m.EventDescription,
		"event_datetime":        m.EventDatetime,
		"customer_requested_at": m.CustomerRequestedAt,
		"customer_username":     m.CustomerUsername,
		"customer_full_name":    m.CustomerFullName,
		"customer_phone":        m.CustomerPhone,
		"customer_email":        m.CustomerEmail,
	}
}

// ParseEventDatetime reads the side-channel event time, accepting both the
// datetime-local shape and full RFC 3339.
func (m Meta) ParseEventDatetime() *time.Time {
	raw := m.EventDatetime
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(EventDatetimeLayout, raw); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}

func metaString(raw datatypes.JSONMap, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(raw datatypes.JSONMap, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
