package catalog

// Default builds the full pgmcp catalogue. Category order here is the
// order clients see in list_categories.
func Default() (*Catalog, error) {
	categories := []Category{
		{Name: "query", Description: "Run read-only SQL queries and inspect query plans", Essential: true},
		{Name: "table", Description: "List, describe, create, alter and drop tables"},
		{Name: "index", Description: "List, create and drop indexes"},
		{Name: "data", Description: "Insert, update and delete rows"},
		{Name: "role", Description: "Manage roles and privileges"},
		{Name: "policy", Description: "Manage row-level security policies"},
		{Name: "storage", Description: "Inspect database and table storage usage"},
	}

	var operations []Operation
	operations = append(operations, queryOps()...)
	operations = append(operations, tableOps()...)
	operations = append(operations, indexOps()...)
	operations = append(operations, dataOps()...)
	operations = append(operations, roleOps()...)
	operations = append(operations, policyOps()...)
	operations = append(operations, storageOps()...)

	return New(categories, operations)
}
