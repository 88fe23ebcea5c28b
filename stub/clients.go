package stub

import (
	"github.com/justapithecus/sheetdrop/backend"
	"github.com/justapithecus/sheetdrop/types"
)

// DefaultClients returns the two demo clients served when none are configured.
func DefaultClients() types.ClientList {
	return types.ClientList{
		{ID: "client_a", Name: "Client A", SheetName: "Client A Data"},
		{ID: "client_b", Name: "Client B", SheetName: "Client B Data"},
	}
}

// sheetHeaders is the fixed header row of every client sheet.
var sheetHeaders = []string{
	"Date",
	"Source",
	"Company Name",
	"Website",
	"Company Linkedin",
	"Campaign",
	"POCs",
	"Linkedin ID",
	"Email ID",
	"Reachout LinkedIn",
	"Reachout Email",
	"Response",
}

func columnMapping(client types.Client) *backend.ColumnMapping {
	return &backend.ColumnMapping{
		ClientName:   client.Name,
		SheetName:    client.SheetName,
		SheetHeaders: append([]string(nil), sheetHeaders...),
		CSVMapping: map[string]string{
			"Organization Name": "Company Name",
			"Website":           "Website",
			"LinkedIn":          "Company Linkedin",
			"Last Funding Type": "Campaign",
		},
		DuplicateCheckFields:   []string{"Company Name"},
		DuplicateHandling:      "skip",
		DuplicateMinMatchScore: 1.0,
	}
}
