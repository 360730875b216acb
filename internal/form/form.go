// Package form holds the single add/edit event form: field state, validation
// and the normalized payload handed to the caller on submit.
package form

import (
	"strings"
	"time"
	"unicode/utf8"

	"schedule-cli/internal/model"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

type Field string

const (
	FieldTitle       Field = "title"
	FieldType        Field = "type"
	FieldLocation    Field = "location"
	FieldDescription Field = "description"
	FieldStartDate   Field = "startDate"
	FieldStartTime   Field = "startTime"
	FieldEndDate     Field = "endDate"
	FieldEndTime     Field = "endTime"
	FieldPriority    Field = "priority"
)

// Fields lists the form fields in display order.
var Fields = []Field{
	FieldTitle,
	FieldType,
	FieldLocation,
	FieldDescription,
	FieldStartDate,
	FieldStartTime,
	FieldEndDate,
	FieldEndTime,
	FieldPriority,
}

func (f Field) Label() string {
	switch f {
	case FieldTitle:
		return "Title"
	case FieldType:
		return "Type"
	case FieldLocation:
		return "Location"
	case FieldDescription:
		return "Description"
	case FieldStartDate:
		return "Start date"
	case FieldStartTime:
		return "Start time"
	case FieldEndDate:
		return "End date"
	case FieldEndTime:
		return "End time"
	case FieldPriority:
		return "Priority"
	case FieldEmail:
		return "Email"
	case FieldPassword:
		return "Password"
	case FieldFirstName:
		return "First name"
	case FieldLastName:
		return "Last name"
	}
	return string(f)
}

const (
	MaxTitleLen    = 100
	MaxTypeLen     = 50
	MaxLocationLen = 100
	MaxNameLen     = 50
	MinPasswordLen = 6

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Form is a value: cancelling is just dropping it.
type Form struct {
	Mode Mode
	ID   int64

	Title       string
	Type        string
	Location    string
	Description string
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	Priority    model.Priority
}

// NewCreate returns an add form for day, spanning 00:00 to 01:00.
func NewCreate(day model.WallTime) Form {
	d := day.Day()
	return Form{
		Mode:      ModeCreate,
		StartDate: d.Format(dateLayout),
		StartTime: d.Format(clockLayout),
		EndDate:   d.Add(time.Hour).Format(dateLayout),
		EndTime:   d.Add(time.Hour).Format(clockLayout),
		Priority:  model.PriorityLow,
	}
}

// NewEdit returns an edit form pre-filled from it.
func NewEdit(it model.ScheduleItem) Form {
	return Form{
		Mode:        ModeEdit,
		ID:          it.ID,
		Title:       it.Title,
		Type:        it.Type,
		Location:    it.Location,
		Description: it.Description,
		StartDate:   it.StartTime.Format(dateLayout),
		StartTime:   it.StartTime.Format(clockLayout),
		EndDate:     it.EndTime.Format(dateLayout),
		EndTime:     it.EndTime.Format(clockLayout),
		Priority:    it.Priority.Normalize(),
	}
}

func (f Form) Get(field Field) string {
	switch field {
	case FieldTitle:
		return f.Title
	case FieldType:
		return f.Type
	case FieldLocation:
		return f.Location
	case FieldDescription:
		return f.Description
	case FieldStartDate:
		return f.StartDate
	case FieldStartTime:
		return f.StartTime
	case FieldEndDate:
		return f.EndDate
	case FieldEndTime:
		return f.EndTime
	case FieldPriority:
		return string(f.Priority)
	}
	return ""
}

func (f *Form) Set(field Field, v string) {
	switch field {
	case FieldTitle:
		f.Title = v
	case FieldType:
		f.Type = v
	case FieldLocation:
		f.Location = v
	case FieldDescription:
		f.Description = v
	case FieldStartDate:
		f.StartDate = v
	case FieldStartTime:
		f.StartTime = v
	case FieldEndDate:
		f.EndDate = v
	case FieldEndTime:
		f.EndTime = v
	case FieldPriority:
		f.Priority = model.Priority(strings.ToLower(strings.TrimSpace(v)))
	}
}

// Validate checks required fields, lengths, syntax and that start precedes end.
// It returns nil when the form can be submitted.
func (f Form) Validate() Errors {
	var errs Errors
	maxLen := func(field Field, v string, n int) {
		if utf8.RuneCountInString(strings.TrimSpace(v)) > n {
			errs.addf(field, "%s must be at most %d characters", field.Label(), n)
		}
	}

	if required(&errs, FieldTitle, f.Title) {
		maxLen(FieldTitle, f.Title, MaxTitleLen)
	}
	if required(&errs, FieldType, f.Type) {
		maxLen(FieldType, f.Type, MaxTypeLen)
	}
	if required(&errs, FieldLocation, f.Location) {
		maxLen(FieldLocation, f.Location, MaxLocationLen)
	}

	start, startOK := f.parse(&errs, FieldStartDate, FieldStartTime)
	end, endOK := f.parse(&errs, FieldEndDate, FieldEndTime)
	if startOK && endOK && !start.Before(end) {
		errs.add(FieldEndTime, "end must be after start")
	}

	if _, err := model.ParsePriority(string(f.Priority)); err != nil {
		errs.add(FieldPriority, "priority must be low, medium or high")
	}
	if f.Mode == ModeEdit && f.ID == 0 {
		errs.add(FieldTitle, "missing event id")
	}
	return errs
}

func (f Form) parse(errs *Errors, dateField, clockField Field) (model.WallTime, bool) {
	date, clock := f.Get(dateField), f.Get(clockField)
	dateOK := required(errs, dateField, date)
	clockOK := required(errs, clockField, clock)
	if !dateOK || !clockOK {
		return model.WallTime{}, false
	}
	w, err := model.ParseDateClock(date, clock)
	if err != nil {
		if _, derr := model.ParseDateClock(date, "00:00"); derr != nil {
			errs.add(dateField, derr.Error())
		} else {
			errs.add(clockField, err.Error())
		}
		return model.WallTime{}, false
	}
	return w, true
}

func required(errs *Errors, field Field, v string) bool {
	if strings.TrimSpace(v) == "" {
		errs.add(field, field.Label()+" is required")
		return false
	}
	return true
}

// Submit validates and returns the trimmed payload. Nothing is returned when
// the form is invalid.
func (f Form) Submit() (model.ScheduleItem, error) {
	if errs := f.Validate(); errs != nil {
		return model.ScheduleItem{}, errs
	}
	start, _ := model.ParseDateClock(f.StartDate, f.StartTime)
	end, _ := model.ParseDateClock(f.EndDate, f.EndTime)
	it := model.ScheduleItem{
		Title:       strings.TrimSpace(f.Title),
		Type:        strings.TrimSpace(f.Type),
		Location:    strings.TrimSpace(f.Location),
		Description: strings.TrimSpace(f.Description),
		StartTime:   start,
		EndTime:     end,
		Priority:    f.Priority.Normalize(),
	}
	if f.Mode == ModeEdit {
		it.ID = f.ID
	}
	return it, nil
}
