package recordstore

import "sort"

// Settings keys.
const (
	KeyAnnounce         = "hj_announce"
	KeyContractTemplate = "hj_contract_template"
	KeySignatureText    = "hj_signature_text"
)

// Collection keys.
const (
	KeyListings  = "hj_listings"
	KeyTenants   = "hj_tenants"
	KeyOrders    = "hj_orders"
	KeyContracts = "hj_contracts"
)

// Backend tables.
const (
	TableListings  = "listings"
	TableTenants   = "tenants"
	TableOrders    = "orders"
	TableContracts = "contracts"
	TableSettings  = "settings"
)

// Kind classifies how a key is stored.
type Kind string

const (
	// KindSettings is a singleton scalar in the settings table.
	KindSettings Kind = "settings"
	// KindCollection is one of the known record collections.
	KindCollection Kind = "collection"
	// KindPassThrough is any other key, used verbatim as a table name.
	KindPassThrough Kind = "passthrough"
)

var collectionTables = map[string]string{
	KeyListings:  TableListings,
	KeyTenants:   TableTenants,
	KeyOrders:    TableOrders,
	KeyContracts: TableContracts,
}

var settingsKeys = map[string]struct{}{
	KeyAnnounce:         {},
	KeyContractTemplate: {},
	KeySignatureText:    {},
}

// ResolveTable returns the backend table for key. Unknown keys are used as
// the table name unchanged; nothing checks that such a table exists.
func ResolveTable(key string) string {
	if IsSettingsKey(key) {
		return TableSettings
	}
	if table, ok := collectionTables[key]; ok {
		return table
	}
	return key
}

// IsSettingsKey reports whether key is one of the settings keys.
func IsSettingsKey(key string) bool {
	_, ok := settingsKeys[key]
	return ok
}

// KindOf classifies key.
func KindOf(key string) Kind {
	if IsSettingsKey(key) {
		return KindSettings
	}
	if _, ok := collectionTables[key]; ok {
		return KindCollection
	}
	return KindPassThrough
}

// CollectionKeys returns the known collection keys in sorted order.
func CollectionKeys() []string {
	return sortedKeys(collectionTables)
}

// SettingsKeys returns the settings keys in sorted order.
func SettingsKeys() []string {
	return sortedKeys(settingsKeys)
}

// KnownKeys returns every collection and settings key in sorted order.
func KnownKeys() []string {
	keys := append(CollectionKeys(), SettingsKeys()...)
	sort.Strings(keys)
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
