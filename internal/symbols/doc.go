// Package symbols loads the list of instruments to fetch on each run.
package symbols
