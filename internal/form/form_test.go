package form

import (
	"errors"
	"strings"
	"testing"

	"schedule-cli/internal/model"
)

func filled() Form {
	f := NewCreate(model.At(2024, 1, 1, 15, 30))
	f.Title = " Meeting "
	f.Type = "work"
	f.Location = "Room 1"
	f.StartTime = "09:00"
	f.EndTime = "10:00"
	return f
}

func TestNewCreateSpansFirstHourOfDay(t *testing.T) {
	t.Parallel()

	f := NewCreate(model.At(2024, 3, 9, 15, 30))
	if f.Mode != ModeCreate || f.StartDate != "2024-03-09" || f.StartTime != "00:00" || f.EndDate != "2024-03-09" || f.EndTime != "01:00" {
		t.Fatalf("unexpected defaults: %+v", f)
	}
	if f.Priority != model.PriorityLow {
		t.Fatalf("default priority = %q", f.Priority)
	}
}

func TestNewEditPrefills(t *testing.T) {
	t.Parallel()

	it := model.ScheduleItem{
		ID:        7,
		Title:     "Dentist",
		Type:      "health",
		Location:  "Clinic",
		StartTime: model.At(2024, 5, 2, 14, 15),
		EndTime:   model.At(2024, 5, 2, 15, 0),
		Priority:  model.PriorityMedium,
	}
	f := NewEdit(it)
	if f.Mode != ModeEdit || f.ID != 7 || f.StartTime != "14:15" || f.EndDate != "2024-05-02" || f.Priority != model.PriorityMedium {
		t.Fatalf("unexpected form: %+v", f)
	}
	got, err := f.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got != it {
		t.Fatalf("edit round trip changed the item:\n got %+v\nwant %+v", got, it)
	}
}

func TestSubmitRejectsEndBeforeStart(t *testing.T) {
	t.Parallel()

	f := filled()
	f.StartTime = "09:00"
	f.EndTime = "08:00"

	_, err := f.Submit()
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected Errors; got %v", err)
	}
	if got := errs.For(FieldEndTime); got != "end must be after start" {
		t.Fatalf("end error = %q (all: %v)", got, errs)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		field Field
	}{
		{"title", FieldTitle},
		{"type", FieldType},
		{"location", FieldLocation},
		{"start date", FieldStartDate},
		{"start time", FieldStartTime},
		{"end date", FieldEndDate},
		{"end time", FieldEndTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := filled()
			f.Set(tc.field, "   ")
			errs := f.Validate()
			if !errs.Has(tc.field) {
				t.Fatalf("expected error on %s; got %v", tc.field, errs)
			}
			if !strings.Contains(errs.For(tc.field), "is required") {
				t.Fatalf("message = %q", errs.For(tc.field))
			}
		})
	}
}

func TestValidateDescriptionOptional(t *testing.T) {
	t.Parallel()

	f := filled()
	f.Description = ""
	if errs := f.Validate(); errs != nil {
		t.Fatalf("expected valid form; got %v", errs)
	}
}

func TestValidateLimitsAndSyntax(t *testing.T) {
	t.Parallel()

	f := filled()
	f.Title = strings.Repeat("é", MaxTitleLen+1)
	f.Type = strings.Repeat("x", MaxTypeLen)
	f.StartDate = "2024-13-01"
	f.EndTime = "25:00"
	f.Priority = "urgent"

	errs := f.Validate()
	for _, field := range []Field{FieldTitle, FieldStartDate, FieldEndTime, FieldPriority} {
		if !errs.Has(field) {
			t.Fatalf("expected error on %s; got %v", field, errs)
		}
	}
	if errs.Has(FieldType) {
		t.Fatalf("type at the limit must pass; got %q", errs.For(FieldType))
	}
	if errs.For(FieldEndTime) == "end must be after start" {
		t.Fatalf("ordering must not be checked when times don't parse")
	}
}

func TestSubmitTrimsAndNormalizes(t *testing.T) {
	t.Parallel()

	f := filled()
	f.Description = "  agenda  "
	f.Set(FieldPriority, " HIGH ")

	it, err := f.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if it.ID != 0 || it.Title != "Meeting" || it.Description != "agenda" || it.Priority != model.PriorityHigh {
		t.Fatalf("unexpected payload: %+v", it)
	}
	if !it.StartTime.Equal(model.At(2024, 1, 1, 9, 0)) || !it.EndTime.Equal(model.At(2024, 1, 1, 10, 0)) {
		t.Fatalf("unexpected times: %s %s", it.StartTime, it.EndTime)
	}
	if !it.Valid() {
		t.Fatalf("submitted item must be valid")
	}
}

func TestMultiDaySpan(t *testing.T) {
	t.Parallel()

	f := filled()
	f.StartTime = "23:00"
	f.EndDate = "2024-01-02"
	f.EndTime = "01:00"
	if errs := f.Validate(); errs != nil {
		t.Fatalf("expected overnight span to be valid; got %v", errs)
	}
}

func TestAccountValidators(t *testing.T) {
	t.Parallel()

	if errs := ValidateCredentials(model.Credentials{Email: "ada@example.com", Password: "x"}); errs != nil {
		t.Fatalf("expected valid credentials; got %v", errs)
	}
	errs := ValidateCredentials(model.Credentials{Email: "not-an-email"})
	if !errs.Has(FieldEmail) || !errs.Has(FieldPassword) {
		t.Fatalf("expected email and password errors; got %v", errs)
	}

	reg := model.Registration{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "12345"}
	if errs := ValidateRegistration(reg); errs.For(FieldPassword) != "password must be at least 6 characters" {
		t.Fatalf("unexpected registration errors: %v", errs)
	}
	reg.Password = "123456"
	reg.LastName = strings.Repeat("l", MaxNameLen+1)
	if errs := ValidateRegistration(reg); !errs.Has(FieldLastName) || errs.Has(FieldPassword) {
		t.Fatalf("unexpected registration errors: %v", errs)
	}

	if errs := ValidateUserUpdate(model.UserUpdate{FirstName: "Ada"}); errs != nil {
		t.Fatalf("empty password keeps the old one; got %v", errs)
	}
	if errs := ValidateUserUpdate(model.UserUpdate{Password: "abc"}); !errs.Has(FieldPassword) {
		t.Fatalf("expected short password rejected")
	}
}
