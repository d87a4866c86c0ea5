package storage

import "coinkeeper/internal/core"

// SeedCategories mirrors the rows inserted by the SQL migrations, in id order.
var SeedCategories = map[core.Kind][]string{
	core.KindIncome: {
		"Salary",
		"Bonus",
		"Side job",
		"Gift",
		"Investments",
		"Deposit interest",
		"Other income",
	},
	core.KindExpense: {
		"Groceries",
		"Cafes and restaurants",
		"Transport",
		"Housing and utilities",
		"Health",
		"Clothes",
		"Education",
		"Entertainment",
		"Gifts",
		"Subscriptions",
		"Other expenses",
	},
}
