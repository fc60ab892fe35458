package models

// All: migration sırasına göre tüm tablolar
func All() []any {
	return []any{
		&Region{},
		&User{},
		&Supplier{},
		&PriceListItem{},
		&Stock{},
		&StockTransaction{},
		&Subcontractor{},
		&CashTransaction{},
		&Payment{},
		&PaymentItem{},
		&Task{},
		&TaskAssignment{},
		&TaskLog{},
		&Project{},
		&ProjectExpense{},
		&ProjectFile{},
		&Notification{},
		&AuditLog{},
	}
}
