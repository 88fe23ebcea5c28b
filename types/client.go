// Package types defines the domain types shared by the sheetdrop CLI,
// the upload controller and the backend client.
//
//nolint:revive // types is a common Go package naming convention
package types

// Client is a target account whose destination sheet receives uploaded rows.
// The list of clients is supplied once by the backend and never mutated.
type Client struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	SheetName string `json:"sheet_name" yaml:"sheet_name"`
}

// ClientList is the read-only client list loaded at startup.
type ClientList []Client

// Lookup returns the client with the given id.
func (l ClientList) Lookup(id string) (Client, bool) {
	for _, c := range l {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}

// Contains reports whether id names a loaded client.
func (l ClientList) Contains(id string) bool {
	_, ok := l.Lookup(id)
	return ok
}

// IDs returns the client identifiers in list order.
func (l ClientList) IDs() []string {
	ids := make([]string, 0, len(l))
	for _, c := range l {
		ids = append(ids, c.ID)
	}
	return ids
}
