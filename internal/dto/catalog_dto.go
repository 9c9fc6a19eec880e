package dto

// EmbedProductMessage is the payload of one product embedding job.
type EmbedProductMessage struct {
	ProductId int64 `json:"product_id"`
}

type BackfillEmbeddingsResponse struct {
	Queued int `json:"queued"`
}
