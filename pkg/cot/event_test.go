package cot

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewEventDefaults(t *testing.T) {
	e, err := NewEvent("TRACK1", "a-f-G-E-V-C")
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	if e.How != DefaultHow {
		t.Errorf("How = %q, want %q", e.How, DefaultHow)
	}
	if got := e.Stale.Sub(e.Time); got != DefaultStaleAfter {
		t.Errorf("stale window = %v, want %v", got, DefaultStaleAfter)
	}
	if e.Time.Location() != time.UTC {
		t.Error("Time should be UTC")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Event {
		e, err := NewEvent("uid-1", "a-f-G-U")
		if err != nil {
			t.Fatalf("NewEvent() error = %v", err)
		}
		return e
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"Valid", func(e *Event) {}, false},
		{"ValidWithPoint", func(e *Event) { e.SetPoint(51.5074, -0.1278) }, false},
		{"EmptyUID", func(e *Event) { e.UID = "" }, true},
		{"BlankUID", func(e *Event) { e.UID = "   " }, true},
		{"TypeNotAtom", func(e *Event) { e.Type = "b-f-G" }, true},
		{"TypeBadAffiliation", func(e *Event) { e.Type = "a-x-G" }, true},
		{"TypeTruncated", func(e *Event) { e.Type = "a-f" }, true},
		{"TypeTrailingDash", func(e *Event) { e.Type = "a-f-G-" }, true},
		{"TypeDeepHierarchy", func(e *Event) { e.Type = "a-h-A-M-F-Q-r" }, false},
		{"LatTooHigh", func(e *Event) { e.SetPoint(90.001, 0) }, true},
		{"LatTooLow", func(e *Event) { e.SetPoint(-91, 0) }, true},
		{"LonTooHigh", func(e *Event) { e.SetPoint(0, 180.5) }, true},
		{"LonTooLow", func(e *Event) { e.SetPoint(0, -181) }, true},
		{"LatBoundary", func(e *Event) { e.SetPoint(90, -180) }, false},
		{"StaleBeforeTime", func(e *Event) { e.Stale = e.Time.Add(-time.Second) }, true},
		{"StaleEqualsTime", func(e *Event) { e.Stale = e.Time }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base()
			tt.mutate(e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("error %v should wrap ErrValidation", err)
			}
		})
	}
}

func TestNewEventRejectsInvalid(t *testing.T) {
	if _, err := NewEvent("", "a-f-G"); !errors.Is(err, ErrValidation) {
		t.Errorf("NewEvent with empty uid: error = %v, want ErrValidation", err)
	}
	if _, err := NewEvent("uid", "not-a-type"); !errors.Is(err, ErrValidation) {
		t.Errorf("NewEvent with bad type: error = %v, want ErrValidation", err)
	}
}

func TestSetPointPreservesAltitude(t *testing.T) {
	e, _ := NewEvent("uid", "a-f-G")
	e.SetPointFull(1, 2, 100, 5, 10)
	e.SetPoint(3, 4)

	want := Point{Lat: 3, Lon: 4, HAE: 100, CE: 5, LE: 10}
	if *e.Point != want {
		t.Errorf("Point = %+v, want %+v", *e.Point, want)
	}
}

func TestSetContactClear(t *testing.T) {
	e, _ := NewEvent("uid", "a-f-G")
	e.SetContact("RAVEN", "192.168.1.10:4242")
	if e.Contact == nil || e.Contact.Callsign != "RAVEN" {
		t.Fatalf("Contact = %+v", e.Contact)
	}
	e.SetContact("", "")
	if e.Contact != nil {
		t.Error("Contact should be cleared")
	}
}

func TestAddDetail(t *testing.T) {
	e, _ := NewEvent("uid", "a-f-G")

	if err := e.AddDetail(`<remarks>on station</remarks>`); err != nil {
		t.Fatalf("AddDetail() error = %v", err)
	}
	if err := e.AddDetail(`<takv os="31" platform="test"/>`); err != nil {
		t.Fatalf("AddDetail() error = %v", err)
	}
	if got := len(e.Details()); got != 2 {
		t.Fatalf("Details() len = %d, want 2", got)
	}
	if !strings.Contains(e.Details()[0], "on station") {
		t.Errorf("first fragment = %q", e.Details()[0])
	}

	if err := e.AddDetail(`<unclosed>`); !errors.Is(err, ErrValidation) {
		t.Errorf("AddDetail with malformed XML: error = %v, want ErrValidation", err)
	}
	if err := e.AddDetail(``); !errors.Is(err, ErrValidation) {
		t.Errorf("AddDetail with empty input: error = %v, want ErrValidation", err)
	}
}

func TestEqual(t *testing.T) {
	a, _ := NewEvent("uid", "a-f-G")
	b := *a
	if !a.Equal(&b) {
		t.Error("copies should be equal")
	}

	b.Type = "a-h-G"
	if a.Equal(&b) {
		t.Error("different type codes should not be equal")
	}

	c := *a
	c.SetContact("RAVEN", "")
	if a.Equal(&c) {
		t.Error("contact presence should affect equality")
	}
}
