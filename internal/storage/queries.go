package storage

const transactionColumns = `
	transactions.id,
	transactions.type,
	transactions.category,
	transactions.amount,
	transactions.date,
	transactions.description,
	categories.name AS category_name,
	categories.type AS category_type`

const (
	insertTransaction = `INSERT INTO transactions (id, type, category, amount, date, description)
		VALUES (:id, :type, :category, :amount, :date, :description)`

	listTransactions = `SELECT ` + transactionColumns + `
		FROM transactions
		LEFT JOIN categories ON transactions.category = categories.id
		ORDER BY transactions.rowid
		LIMIT ? OFFSET ?`

	getTransaction = `SELECT ` + transactionColumns + `
		FROM transactions
		LEFT JOIN categories ON transactions.category = categories.id
		WHERE transactions.id = ?`

	deleteTransaction = `DELETE FROM transactions WHERE id = ?`

	summaryBase = `SELECT
		COALESCE(SUM(CASE WHEN transactions.type = 'income' THEN transactions.amount ELSE 0.0 END), 0.0) AS total_income,
		COALESCE(SUM(CASE WHEN transactions.type = 'expense' THEN transactions.amount ELSE 0.0 END), 0.0) AS total_expenses
		FROM transactions
		LEFT JOIN categories ON transactions.category = categories.id`

	listCategories = `SELECT id, name, type FROM categories ORDER BY id`

	countCategories = `SELECT COUNT(*) FROM categories`

	insertCategory = `INSERT INTO categories (name, type) VALUES (?, ?)`
)
