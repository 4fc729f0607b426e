package aadhaar

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

const (
	elementPrintLetter = "PrintLetterBarcodeData"
	elementUidData     = "UidData"
	elementPoi         = "Poi"
	elementPoa         = "Poa"
)

// XmlFields holds the attribute values of a legacy XML payload. Missing
// attributes are empty strings.
type XmlFields struct {
	Element string

	Uid         string
	Name        string
	Gender      string
	Dob         string
	Yob         string
	CareOf      string
	House       string
	Street      string
	Landmark    string
	Location    string
	Vtc         string
	PostOffice  string
	SubDistrict string
	District    string
	State       string
	Pincode     string
}

// Attribute names per field, first match wins. The short names are the
// ones printed on letters; the long ones come from offline e-KYC files.
var xmlAttributeNames = []struct {
	names []string
	field func(*XmlFields) *string
}{
	{[]string{"uid"}, func(f *XmlFields) *string { return &f.Uid }},
	{[]string{"name"}, func(f *XmlFields) *string { return &f.Name }},
	{[]string{"gender"}, func(f *XmlFields) *string { return &f.Gender }},
	{[]string{"dob"}, func(f *XmlFields) *string { return &f.Dob }},
	{[]string{"yob"}, func(f *XmlFields) *string { return &f.Yob }},
	{[]string{"co", "careof"}, func(f *XmlFields) *string { return &f.CareOf }},
	{[]string{"house"}, func(f *XmlFields) *string { return &f.House }},
	{[]string{"street"}, func(f *XmlFields) *string { return &f.Street }},
	{[]string{"lm", "landmark"}, func(f *XmlFields) *string { return &f.Landmark }},
	{[]string{"loc"}, func(f *XmlFields) *string { return &f.Location }},
	{[]string{"vtc"}, func(f *XmlFields) *string { return &f.Vtc }},
	{[]string{"po"}, func(f *XmlFields) *string { return &f.PostOffice }},
	{[]string{"subdist"}, func(f *XmlFields) *string { return &f.SubDistrict }},
	{[]string{"dist"}, func(f *XmlFields) *string { return &f.District }},
	{[]string{"state"}, func(f *XmlFields) *string { return &f.State }},
	{[]string{"pc"}, func(f *XmlFields) *string { return &f.Pincode }},
}

// ReadXmlAttributes parses a legacy XML payload and reads the attributes of
// the PrintLetterBarcodeData element, else UidData, else the root element.
// For UidData the attributes of its Poi and Poa children are included.
func ReadXmlAttributes(payload string) (*XmlFields, error) {
	dec := xml.NewDecoder(strings.NewReader(payload))
	dec.CharsetReader = charsetReader

	var root, printLetter, uidData, poi, poa *xml.StartElement
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newDecodeError(XmlParseError, "malformed XML payload", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		se = se.Copy()
		root = firstOf(root, &se)
		switch se.Name.Local {
		case elementPrintLetter:
			printLetter = firstOf(printLetter, &se)
		case elementUidData:
			uidData = firstOf(uidData, &se)
		case elementPoi:
			poi = firstOf(poi, &se)
		case elementPoa:
			poa = firstOf(poa, &se)
		}
	}
	if root == nil {
		return nil, newDecodeError(XmlParseError, "malformed XML payload", fmt.Errorf("no element found"))
	}

	var attrs []xml.Attr
	element := root
	switch {
	case printLetter != nil:
		element = printLetter
		attrs = printLetter.Attr
	case uidData != nil:
		element = uidData
		attrs = append(attrs, uidData.Attr...)
		if poi != nil {
			attrs = append(attrs, poi.Attr...)
		}
		if poa != nil {
			attrs = append(attrs, poa.Attr...)
		}
	default:
		attrs = root.Attr
	}

	fields := &XmlFields{Element: element.Name.Local}
	for _, a := range xmlAttributeNames {
		*a.field(fields) = strings.TrimSpace(lookupAttr(attrs, a.names))
	}
	fields.Uid = strings.Join(strings.Fields(fields.Uid), "")

	return fields, nil
}

func firstOf(current, candidate *xml.StartElement) *xml.StartElement {
	if current != nil {
		return current
	}
	return candidate
}

func lookupAttr(attrs []xml.Attr, names []string) string {
	for _, name := range names {
		for _, a := range attrs {
			if a.Name.Local == name {
				return a.Value
			}
		}
	}
	return ""
}

// charsetReader lets the decoder honour non UTF-8 encoding declarations.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
