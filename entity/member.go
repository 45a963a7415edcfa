package entity

// CategoryM selects the late default time out.
const CategoryM = "M"

type Member struct {
	Key        string `db:"member_key"`
	Name       string `db:"name"`
	ExternalID string `db:"external_id"`
	Category   string `db:"category"`
}
