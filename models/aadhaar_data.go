package models

import "time"

// AadhaarData is the attribute set issued as a credential after a
// successful scan.
type AadhaarData struct {
	Photo       string // base64 PNG, optional
	MaskedUid   string
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth time.Time
	YearOfBirth string
	Gender      string
	Pincode     string
	State       string
	Over18      string
	Over65      string
}
