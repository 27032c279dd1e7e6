// Package recordstore persists the rental app's data behind a key-value
// interface.
//
// Keys map to backend tables:
//
//	hj_listings   -> listings
//	hj_tenants    -> tenants
//	hj_orders     -> orders
//	hj_contracts  -> contracts
//
// The settings keys hj_announce, hj_contract_template and hj_signature_text
// are single values stored as rows of the settings table. Any other key is
// used as a table name directly and its records are stored unchanged.
//
// Collections are written whole: Set replaces the table contents and Get
// returns every record, newest first, each with a ts field in epoch
// milliseconds taken from the row's created_at.
//
// Reads never fail. Get returns the caller's default when there is nothing
// stored or the backend errors; Lookup reports which of the two happened.
// Set returns backend errors. Del logs them and carries on.
package recordstore
