package crossref

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/researchgraph/crossref/pkg/logger"
)

// Registry envelope sentinels. A payload is accepted only when the status is
// ok and the message type matches the expected tag for the operation.
const (
	statusOK        = "ok"
	messageWork     = "work"
	messageWorkList = "work-list"
)

// response is the registry envelope wrapping every API payload. Additional
// envelope fields are tolerated and ignored.
type response[T any] struct {
	Status      string `json:"status"`
	MessageType string `json:"message-type"`
	Message     *T     `json:"message"`
}

// Work is the registry's bibliographic metadata record for one publication.
type Work struct {
	Title  []string  `json:"title"`
	Issued dateParts `json:"issued"`
	Author []Author  `json:"author"`
	URL    string    `json:"URL"`
}

// WorkList is a page of works as returned by the work-list endpoint.
type WorkList struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

type dateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Author is one creator entry on a work.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
	ORCID  string `json:"ORCID"`
}

// FullName returns the structured full name when present, otherwise it is
// derived as "<given> <family>", trimmed when either part is empty.
func (a Author) FullName() string {
	if a.Name != "" {
		return a.Name
	}
	return strings.TrimSpace(a.Given + " " + a.Family)
}

// FirstTitle returns the first title entry, or "" when the work has none.
func (w *Work) FirstTitle() string {
	if len(w.Title) == 0 {
		return ""
	}
	return w.Title[0]
}

// IssuedYear returns the publication year as a string, or "" when the issued
// date carries no parts.
func (w *Work) IssuedYear() string {
	if len(w.Issued.DateParts) == 0 || len(w.Issued.DateParts[0]) == 0 {
		return ""
	}
	return strconv.Itoa(w.Issued.DateParts[0][0])
}

// authorityEntry is one element of the authority-lookup response. Entries for
// unknown DOIs carry a status message instead of a registration agency.
type authorityEntry struct {
	DOI    string `json:"DOI"`
	RA     string `json:"RA"`
	Status string `json:"status"`
}

// parseWork extracts a work from a registry envelope. Any status, type or
// shape mismatch means no data, not a failure.
func parseWork(body string) *Work {
	var resp response[Work]
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		logger.Warn("[CrossRef] Invalid work response", "err", err)
		return nil
	}
	if resp.Status != statusOK || resp.MessageType != messageWork || resp.Message == nil {
		logger.Warn("[CrossRef] Invalid work response", "status", resp.Status, "message_type", resp.MessageType)
		return nil
	}
	return resp.Message
}

// parseWorkList extracts a work list from a registry envelope.
func parseWorkList(body string) *WorkList {
	var resp response[WorkList]
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		logger.Warn("[CrossRef] Invalid work-list response", "err", err)
		return nil
	}
	if resp.Status != statusOK || resp.MessageType != messageWorkList || resp.Message == nil {
		logger.Warn("[CrossRef] Invalid work-list response", "status", resp.Status, "message_type", resp.MessageType)
		return nil
	}
	return resp.Message
}

// parseAuthority extracts the registration agency from an authority-lookup
// response. Entries carrying an error status are logged and skipped.
func parseAuthority(body string) string {
	var entries []authorityEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		logger.Warn("[CrossRef] Invalid authority response", "err", err)
		return ""
	}
	for _, entry := range entries {
		if entry.RA != "" {
			return entry.RA
		}
		if entry.Status != "" {
			logger.Warn("[CrossRef] Authority lookup returned status", "doi", entry.DOI, "status", entry.Status)
		}
	}
	return ""
}
