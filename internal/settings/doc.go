// Package settings holds the user-editable node settings: where the node is
// installed, how it reports and how often it measures.
//
// Settings travel through the device as a plain map (the form stored on
// disk and submitted by the configuration portal). Decode turns that map
// into the typed Settings used by the operating states, filling defaults
// for missing keys. Store persists the map as JSON.
package settings
