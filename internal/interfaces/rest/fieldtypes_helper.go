package rest

import (
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/query"
)

// DomainInfo represents a column domain for API response
type DomainInfo struct {
	Code          int    `json:"code"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	SQLType       string `json:"sqlType,omitempty"`
	AutoIncrement bool   `json:"autoIncrement"`
	IsVirtual     bool   `json:"isVirtual"`
}

// GetAllDomains returns every column domain with the storage type it gets
// on the given dialect. Virtual domains have no storage type.
func GetAllDomains(dialect query.Dialect) []DomainInfo {
	all := fieldtypes.All()
	result := make([]DomainInfo, 0, len(all))
	for _, d := range all {
		info := DomainInfo{
			Code:          d.Code(),
			Name:          d.Name(),
			Label:         d.Label(),
			AutoIncrement: d.AutoIncrement(),
			IsVirtual:     d.Virtual(),
		}
		if !d.Virtual() {
			info.SQLType = dialect.ColumnType(d)
		}
		result = append(result, info)
	}
	return result
}
