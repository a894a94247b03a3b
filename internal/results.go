package internal

// IsMasterResult is the capability-discovery response of the server.
type IsMasterResult struct {
	IsMaster            bool     `bson:"ismaster"`
	MinWireVersion      int32    `bson:"minWireVersion"`
	MaxWireVersion      int32    `bson:"maxWireVersion"`
	MaxBSONObjectSize   uint32   `bson:"maxBsonObjectSize"`
	MaxMessageSizeBytes uint32   `bson:"maxMessageSizeBytes"`
	MaxWriteBatchSize   uint32   `bson:"maxWriteBatchSize"`
	Compression         []string `bson:"compression"`
	ReadOnly            bool     `bson:"readOnly"`
}
