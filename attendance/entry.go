package attendance

import "github.com/178inaba/attendance-sheet-bot/entity"

// Overrides are the optional command arguments. Empty means unspecified.
type Overrides struct {
	Seat    string
	TimeIn  string
	TimeOut string
}

// Defaults are the clock times used when a command leaves them out.
type Defaults struct {
	TimeIn string
	// TimeOut applies to every category except entity.CategoryM.
	TimeOut     string
	TimeOutLate string
}

var DefaultTimes = Defaults{
	TimeIn:      "17:30",
	TimeOut:     "21:00",
	TimeOutLate: "22:00",
}

// Assemble builds the entry for serial from the member and overrides.
func Assemble(serial int, m entity.Member, o Overrides, d Defaults) entity.Entry {
	e := entity.Entry{
		Serial:     serial,
		Name:       m.Name,
		ExternalID: m.ExternalID,
		Seat:       o.Seat,
		TimeIn:     o.TimeIn,
		TimeOut:    o.TimeOut,
	}

	if e.TimeIn == "" {
		e.TimeIn = d.TimeIn
	}
	if e.TimeOut == "" {
		if m.Category == entity.CategoryM {
			e.TimeOut = d.TimeOutLate
		} else {
			e.TimeOut = d.TimeOut
		}
	}

	return e
}
