package payment

// PurchaseRequest buys a credit package through a synchronous provider
type PurchaseRequest struct {
	PackageID     string `json:"package_id" validate:"required,package_id"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
}
