// Package history keeps an audit trail of pipeline runs in an embedded
// badgerhold store, so operators can see recent outcomes without log access.
package history
