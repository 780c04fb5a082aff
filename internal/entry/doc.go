// Package entry stores and runs config entries.
//
// A config entry is one configured instance of an integration: its
// settings, title and timestamps, persisted in the config_entries SQLite
// table. The Manager keeps an in-memory cache of entries, activates each
// entry's integration on load and holds the activation handle until the
// entry is unloaded.
//
// Lifecycle:
//
//	LoadAll   startup: activate every stored entry
//	Create    persist a new entry, then activate it
//	Update    replace the entry's data wholesale, then reload it
//	Delete    unload, then remove from storage
//	Shutdown  unload every entry (storage untouched)
//
// An entry whose activation fails stays in the cache with state
// setup_error; the error is logged and the remaining entries still load.
//
// Thread Safety:
//
// All Manager methods are safe for concurrent use. Lifecycle operations on
// the same entry are serialised by the manager's lock.
package entry
