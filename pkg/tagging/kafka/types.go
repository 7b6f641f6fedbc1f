package kafka

// InputEvent is the minimum a location event must carry. Other JSON fields,
// ts included, are passed through untouched in whatever form they arrive.
type InputEvent struct {
	ID        string   `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// TaggedEvent lists the fields added to each event on the output topic.
type TaggedEvent struct {
	Key             string  `json:"key"`
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
}
