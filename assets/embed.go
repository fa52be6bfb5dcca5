package assets

import (
	"embed"
)

//go:embed countries.json
var FS embed.FS

// CountriesJSON returns the bundled default country catalog.
func CountriesJSON() ([]byte, error) {
	return FS.ReadFile("countries.json")
}
