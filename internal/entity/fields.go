package entity

// ExtractedFields is the structured view of an invoice. A nil field means "not found or not verified".
type ExtractedFields struct {
	SupplierName *string  `json:"supplier_name"`
	CustomerName *string  `json:"customer_name"`
	DateIssued   *string  `json:"date_issued"`
	DueDate      *string  `json:"due_date"`
	TotalAmount  *float64 `json:"total_amount"`
	Warning      *string  `json:"warning,omitempty"`
}

// Field names as stored and as exposed to chat lookups.
const (
	FieldSupplierName = "supplier_name"
	FieldCustomerName = "customer_name"
	FieldDateIssued   = "date_issued"
	FieldDueDate      = "due_date"
	FieldTotalAmount  = "total_amount"
)

// Value returns the named field as an untyped value, nil when unset or unknown.
func (f ExtractedFields) Value(name string) any {
	switch name {
	case FieldSupplierName:
		return deref(f.SupplierName)
	case FieldCustomerName:
		return deref(f.CustomerName)
	case FieldDateIssued:
		return deref(f.DateIssued)
	case FieldDueDate:
		return deref(f.DueDate)
	case FieldTotalAmount:
		if f.TotalAmount == nil {
			return nil
		}
		return *f.TotalAmount
	}
	return nil
}

// AddWarning appends msg to the warning, separated by "; ".
func (f *ExtractedFields) AddWarning(msg string) {
	if msg == "" {
		return
	}
	if f.Warning == nil || *f.Warning == "" {
		f.Warning = &msg
		return
	}
	w := *f.Warning + "; " + msg
	f.Warning = &w
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
