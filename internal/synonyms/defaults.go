package synonyms

// defaultGroups are the bundled layer-1 synonym groups. Real vocabularies
// grow from here via the layered file loaders in table.go.
var defaultGroups = [][]string{
	{"fxrp", "flare xrp"},
	{"xrp", "ripple"},
	{"btc", "bitcoin"},
	{"eth", "ethereum"},
	{"usdt", "tether"},
	{"dark mode", "night mode"},
	{"position", "allocation", "holding"},
	{"bridge", "bridging"},
	{"gas fees", "transaction fees"},
}
