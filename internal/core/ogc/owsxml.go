package ogc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ExceptionReport is the OWS error document returned by WCS services.
type ExceptionReport struct {
	XMLName    xml.Name    `xml:"ExceptionReport"`
	Version    string      `xml:"version,attr"`
	Exceptions []Exception `xml:"Exception"`
}

type Exception struct {
	Code    string   `xml:"exceptionCode,attr"`
	Locator string   `xml:"locator,attr"`
	Texts   []string `xml:"ExceptionText"`
}

func (r *ExceptionReport) Code() string {
	if r == nil || len(r.Exceptions) == 0 {
		return ""
	}
	return r.Exceptions[0].Code
}

func (r *ExceptionReport) Error() string {
	if r == nil || len(r.Exceptions) == 0 {
		return "ows exception"
	}
	e := r.Exceptions[0]
	msg := strings.TrimSpace(strings.Join(e.Texts, "; "))
	if e.Locator != "" {
		return fmt.Sprintf("%s (locator=%s): %s", e.Code, e.Locator, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// LooksLikeXML reports whether a payload starts with an XML document.
func LooksLikeXML(b []byte) bool {
	b = bytes.TrimLeft(b, " \t\r\n\ufeff")
	return bytes.HasPrefix(b, []byte("<"))
}

// ParseExceptionReport decodes an OWS ExceptionReport. It returns an error
// if the payload is not one.
func ParseExceptionReport(b []byte) (*ExceptionReport, error) {
	var r ExceptionReport
	if err := xml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse exception report: %w", err)
	}
	return &r, nil
}

type capabilities struct {
	XMLName  xml.Name `xml:"Capabilities"`
	Contents struct {
		Summaries []struct {
			CoverageID string `xml:"CoverageId"`
			Subtype    string `xml:"CoverageSubtype"`
		} `xml:"CoverageSummary"`
	} `xml:"Contents"`
}

// ParseCapabilities returns the coverage identifiers advertised by a WCS
// 2.0 GetCapabilities document, in document order.
func ParseCapabilities(b []byte) ([]string, error) {
	var c capabilities
	if err := xml.Unmarshal(b, &c); err != nil {
		if rep, rerr := ParseExceptionReport(b); rerr == nil {
			return nil, rep
		}
		return nil, fmt.Errorf("parse capabilities: %w", err)
	}
	out := make([]string, 0, len(c.Contents.Summaries))
	for _, s := range c.Contents.Summaries {
		id := strings.TrimSpace(s.CoverageID)
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("capabilities list no coverages")
	}
	return out, nil
}
