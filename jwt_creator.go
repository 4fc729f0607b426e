package main

import (
	"crypto/rsa"
	"os"
	"time"

	"go-aadhaar-scanner/models"

	"github.com/golang-jwt/jwt/v4"
	irma "github.com/privacybydesign/irmago"
)

type JwtCreator interface {
	CreateAadhaarJwt(data models.AadhaarData) (jwt string, err error)
}

func NewIrmaJwtCreator(privateKeyPath string,
	issuerId string,
	credential string,
	sdJwtBatchSize uint,
) (*DefaultJwtCreator, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)

	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)

	if err != nil {
		return nil, err
	}

	return &DefaultJwtCreator{
		issuerId:       issuerId,
		privateKey:     privateKey,
		credential:     credential,
		sdJwtBatchSize: sdJwtBatchSize,
	}, nil
}

type DefaultJwtCreator struct {
	privateKey     *rsa.PrivateKey
	issuerId       string
	credential     string
	sdJwtBatchSize uint
}

func (jc *DefaultJwtCreator) createJwt(attributes map[string]string) (string, error) {
	issuanceRequest := jc.createIssuanceRequest(attributes)

	return irma.SignSessionRequest(
		issuanceRequest,
		jwt.GetSigningMethod(jwt.SigningMethodRS256.Alg()),
		jc.privateKey,
		jc.issuerId,
	)
}

const DATE_FORMAT_CYMD = "2006-01-02"
const DATE_FORMAT_YEAR = "2006"

func (jc *DefaultJwtCreator) CreateAadhaarJwt(data models.AadhaarData) (string, error) {
	return jc.createJwt(aadhaarAttributes(data))
}

// aadhaarAttributes lists the credential attributes. Optional attributes
// that are empty are left out of the request.
func aadhaarAttributes(data models.AadhaarData) map[string]string {
	attributes := map[string]string{
		"maskedAadhaarNumber": data.MaskedUid,
		"firstName":           data.FirstName,
		"lastName":            data.LastName,
		"dateOfBirth":         data.DateOfBirth.Format(DATE_FORMAT_CYMD),
		"yearOfBirth":         data.DateOfBirth.Format(DATE_FORMAT_YEAR),
		"gender":              data.Gender,
		"over18":              data.Over18,
		"over65":              data.Over65,
	}
	optional := map[string]string{
		"photo":      data.Photo,
		"middleName": data.MiddleName,
		"pincode":    data.Pincode,
		"state":      data.State,
	}
	for name, value := range optional {
		if value != "" {
			attributes[name] = value
		}
	}
	return attributes
}

// createIssuanceRequest creates an IRMA issuance request with the Aadhaar attributes
// This is a separate method to allow for easier testing
func (jc *DefaultJwtCreator) createIssuanceRequest(attributes map[string]string) *irma.IssuanceRequest {
	validity := irma.Timestamp(time.Unix(time.Now().AddDate(1, 0, 0).Unix(), 0)) // 1 year from now

	return irma.NewIssuanceRequest([]*irma.CredentialRequest{
		{
			CredentialTypeID: irma.NewCredentialTypeIdentifier(jc.credential),
			Attributes:       attributes,
			SdJwtBatchSize:   jc.sdJwtBatchSize,
			Validity:         &validity,
		},
	})
}
