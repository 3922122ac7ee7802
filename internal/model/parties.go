package model

// Parties are the externally observed transaction participants.
// To is empty for contract creations.
type Parties struct {
	From string `json:"from"`
	To   string `json:"to"`
}
