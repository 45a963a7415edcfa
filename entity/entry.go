package entity

import "strconv"

// Entry is one attendance row. It is written once and never stored locally.
type Entry struct {
	Serial     int
	Name       string
	ExternalID string
	Seat       string
	TimeIn     string
	TimeOut    string
}

// Row returns the cells in sheet column order.
func (e Entry) Row() []string {
	return []string{
		strconv.Itoa(e.Serial),
		e.Name,
		e.ExternalID,
		e.Seat,
		e.TimeIn,
		e.TimeOut,
	}
}
