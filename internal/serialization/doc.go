// Package serialization reads the keyed record container used by script
// module archives.
//
//	Format Structure:
//	  [8 bytes: Magic "PYTORCH1"]
//	  [8 bytes: Version (uint64 LE)]
//	  Records, repeated:
//	    [8 bytes: Key (uint64 LE)]
//	    [8 bytes: Size (uint64 LE)]
//	    [zero padding to the next 64-byte boundary]
//	    [Size bytes: payload]
//
// Every record but the last holds raw tensor storage addressed by its key.
// The last record holds the JSON metadata describing the model.
//
// The reader performs no interpretation of record contents:
//
//	reader, err := serialization.Open("model.pt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	meta, err := reader.LastRecord()
//	weights, err := reader.RecordWithKey(7)
package serialization
