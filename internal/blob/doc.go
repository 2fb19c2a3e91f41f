// Package blob provides the flat-file store that holds the symbol list and the
// published price snapshot.
//
// Objects are addressed by a logical name and always written whole: Put
// replaces any previous content under that name. Two backends are provided, a
// directory on the local filesystem and an embedded badger key-value store.
package blob
