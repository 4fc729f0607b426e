package models

// AddressComponents keeps the raw address sub-fields as they appeared in the
// QR payload so a caller can rebuild a structured address.
type AddressComponents struct {
	CareOf      string `json:"care_of,omitempty"`
	House       string `json:"house,omitempty"`
	Street      string `json:"street,omitempty"`
	Landmark    string `json:"landmark,omitempty"`
	Location    string `json:"location,omitempty"`
	PostOffice  string `json:"post_office,omitempty"`
	Vtc         string `json:"vtc,omitempty"`
	SubDistrict string `json:"sub_district,omitempty"`
	District    string `json:"district,omitempty"`
	State       string `json:"state,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
}

type AadhaarRecord struct {
	FirstName         string             `json:"first_name"`
	MiddleName        string             `json:"middle_name"`
	LastName          string             `json:"last_name"`
	Uid               string             `json:"uid"`
	DateOfBirth       string             `json:"date_of_birth"` // YYYY-MM-DD or empty
	Gender            string             `json:"gender"`
	Address           string             `json:"address"`
	AddressComponents *AddressComponents `json:"address_components,omitempty"`

	Format          string `json:"format"`                      // "secure_qr" or "xml"
	SecureQrVersion int    `json:"secure_qr_version,omitempty"` // 0 when implicit
	Photo           []byte `json:"-"`                           // JPEG 2000 from Secure QR, if any
}
