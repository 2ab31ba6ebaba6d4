// Package model holds the data types shared across the ingest pipeline:
// the spool, the flush worker and the parser all exchange ScanRecord
// values without depending on each other's packages.
package model

// ScanRecord is the unit written to the spool and inserted into the
// destination table. Field names match the JSON keys on disk and the
// database column names (via `db` struct tags for sqlx).
type ScanRecord struct {
	DeviceID      string  `json:"DeviceID" db:"DeviceID"`
	ScannerName   string  `json:"ScannerName" db:"ScannerName"`
	EntryNo       int32   `json:"EntryNo" db:"EntryNo"`
	Barcode       string  `json:"Barcode" db:"Barcode"`
	ScanDate      string  `json:"ScanDate" db:"ScanDate"`
	ScanTime      string  `json:"ScanTime" db:"ScanTime"`
	UserID        *string `json:"UserID,omitempty" db:"UserID"`
	Stowage       *string `json:"Stowage,omitempty" db:"Stowage"`
	FlightNo      *string `json:"FlightNo,omitempty" db:"FlightNo"`
	OrderDate     *string `json:"OrderDate,omitempty" db:"OrderDate"`
	DACSClass     *string `json:"DACS_CLASS,omitempty" db:"DACS_CLASS"`
	Leg           *string `json:"Leg,omitempty" db:"Leg"`
	Gally         *string `json:"Gally,omitempty" db:"Gally"`
	BlockNo       *string `json:"BlockNo,omitempty" db:"BlockNo"`
	ContainerCode *string `json:"ContainerCode,omitempty" db:"ContainerCode"`
	DES           *string `json:"DES,omitempty" db:"DES"`
	DACSACType    *string `json:"DACS_ACType,omitempty" db:"DACS_ACType"`
}

// Columns lists the ScanRecord fields in table/insert order. Shared by
// internal/store's schema maintenance and named-parameter INSERT so both
// stay in sync with the struct above.
var Columns = []string{
	"DeviceID", "ScannerName", "EntryNo", "Barcode", "ScanDate", "ScanTime",
	"UserID", "Stowage", "FlightNo", "OrderDate", "DACS_CLASS", "Leg",
	"Gally", "BlockNo", "ContainerCode", "DES", "DACS_ACType",
}
