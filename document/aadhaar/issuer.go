package aadhaar

import (
	"fmt"
	"strings"
	"time"

	"go-aadhaar-scanner/models"
)

const dateLayout = "2006-01-02"

// visibleUidDigits is how many trailing digits of the Aadhaar number stay
// readable once masked, the same amount UIDAI prints on a masked card.
const visibleUidDigits = 4

// ToAadhaarData turns a decoded record into the attribute set for issuance.
// photo is the base64 PNG of the holder photo, or empty.
func ToAadhaarData(record *models.AadhaarRecord, photo string) (models.AadhaarData, error) {
	return toAadhaarDataAt(record, photo, time.Now())
}

func toAadhaarDataAt(record *models.AadhaarRecord, photo string, now time.Time) (models.AadhaarData, error) {
	if record == nil {
		return models.AadhaarData{}, fmt.Errorf("no record to convert")
	}
	if record.DateOfBirth == "" {
		return models.AadhaarData{}, fmt.Errorf("record has no date of birth")
	}
	dob, err := time.Parse(dateLayout, record.DateOfBirth)
	if err != nil {
		return models.AadhaarData{}, fmt.Errorf("failed to parse date of birth: %w", err)
	}

	data := models.AadhaarData{
		Photo:       photo,
		MaskedUid:   MaskUid(record.Uid),
		FirstName:   record.FirstName,
		MiddleName:  record.MiddleName,
		LastName:    record.LastName,
		DateOfBirth: dob,
		YearOfBirth: dob.Format("2006"),
		Gender:      record.Gender,
		Over18:      BoolToYesNo(!dob.After(now.AddDate(-18, 0, 0))),
		Over65:      BoolToYesNo(!dob.After(now.AddDate(-65, 0, 0))),
	}
	if record.AddressComponents != nil {
		data.Pincode = record.AddressComponents.Pincode
		data.State = record.AddressComponents.State
	}
	return data, nil
}

// MaskUid replaces all but the last four digits with X. Shorter ids are
// fully masked.
func MaskUid(uid string) string {
	if len(uid) <= visibleUidDigits {
		return strings.Repeat("X", len(uid))
	}
	return strings.Repeat("X", len(uid)-visibleUidDigits) + uid[len(uid)-visibleUidDigits:]
}

func BoolToYesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
