package lang

// Single-file components embed script blocks in markup, so there is no
// grammar to hand them to. They are scanned lexically.
func init() {
	Languages["vue"] = &Language{Name: "vue", Extensions: []string{".vue"}}
	Languages["svelte"] = &Language{Name: "svelte", Extensions: []string{".svelte"}}
}
