package session

type Event interface {
	// The Delivery this event relates to (nil if not a Delivery-specific event).
	Delivery() *Delivery
}

type deliveryEvent struct {
	delivery *Delivery
}

func (e deliveryEvent) Delivery() *Delivery {
	return e.delivery
}

type DeliveryAdded struct {
	deliveryEvent
}
type DeliveryRemoved struct {
	deliveryEvent
}
type DeliveryStarted struct {
	deliveryEvent
}
type DeliveryStopped struct {
	deliveryEvent
	Err error
}
type DeliveryUpdated struct {
	deliveryEvent
	OldState DeliveryState
	NewState DeliveryState
}
type DeliveryFileComplete struct {
	deliveryEvent
	Path string
}

// CatalogReloaded announces that a new catalog snapshot replaced the previous one.
type CatalogReloaded struct {
	Checksum string
	Assets   int
}

func (CatalogReloaded) Delivery() *Delivery {
	return nil
}
