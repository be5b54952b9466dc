package models

import "github.com/google/uuid"

// AssetStatus is persisted as its textual name; the values must stay stable.
type AssetStatus string

const (
	AssetStatusCreated  AssetStatus = "created"
	AssetStatusUploaded AssetStatus = "uploaded"
)

func (s AssetStatus) Valid() bool {
	return s == AssetStatusCreated || s == AssetStatusUploaded
}

type Asset struct {
	ID     uuid.UUID
	Status AssetStatus
}

// Key is the object-store key holding the asset's bytes.
func (a Asset) Key() string {
	return a.ID.String()
}
