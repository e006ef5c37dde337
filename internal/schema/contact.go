package schema

// contactFields is the target schema for imported contact records.
var contactFields = []TargetField{
	{Key: "name", Label: "Name", Required: true, Kind: KindText, Sample: "Ada Lovelace"},
	{Key: "email", Label: "Email", Required: true, Kind: KindText, Sample: "ada@example.com"},
	{Key: "company", Label: "Company", Required: false, Kind: KindText, Sample: "Analytical Engines Ltd"},
	{Key: "phone", Label: "Phone", Required: false, Kind: KindText, Sample: "+1 555 0100"},
	{Key: "status", Label: "Status", Required: false, Kind: KindEnum, Options: []string{"lead", "prospect", "customer", "churned"}, Sample: "lead"},
	{Key: "tags", Label: "Tags", Required: false, Kind: KindStringList, Sample: "vip, newsletter"},
	{Key: "lifetime_value", Label: "Lifetime Value", Required: false, Kind: KindNumber, Sample: "1250.50"},
	{Key: "subscribed", Label: "Subscribed", Required: false, Kind: KindBool, Sample: "yes"},
	{Key: "notes", Label: "Notes", Required: false, Kind: KindText, Sample: "Met at GopherCon"},
}

// DeniedHeaders lists normalized source headers the schema never accepts.
// These columns are managed by the application itself and are filtered out
// before auto-mapping so users cannot feed them from an import file.
var DeniedHeaders = map[string]bool{
	"id":        true,
	"createdat": true,
	"updatedat": true,
	"owner":     true,
	"ownerid":   true,
}
