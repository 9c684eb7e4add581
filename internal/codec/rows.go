// Package codec converts between the string columns stored in the water-stage
// table and the typed models.Sample.
package codec

// RawRow mirrors one row of the water-stage table with every column in its
// stored text form. Field order matches Columns.
type RawRow struct {
	StationID    string `csv:"stationid"`
	DataTime     string `csv:"datatime"`
	WaterStage   string `csv:"waterstage"`
	TransType    string `csv:"transtype"`
	MessageType  string `csv:"messagetype"`
	RecvDataTime string `csv:"recvdatatime"`
}

// Column names of the water-stage table, in RawRow field order.
const (
	ColStationID    = "stationid"
	ColDataTime     = "datatime"
	ColWaterStage   = "waterstage"
	ColTransType    = "transtype"
	ColMessageType  = "messagetype"
	ColRecvDataTime = "recvdatatime"
)

// Columns lists the table columns in the order bulk loads send them.
var Columns = []string{
	ColStationID,
	ColDataTime,
	ColWaterStage,
	ColTransType,
	ColMessageType,
	ColRecvDataTime,
}
