// Package influxdb exports sensor node samples to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health monitoring. The
// export is optional: a node runs without it and keeps its samples in the
// local SQLite store regardless.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteMeasurement(influxdb.Sample{NodeID: id, Temperature: 21.5, Humidity: 40})
//
// # Points
//
//	environment,node_id=..,department=..,room=..  temperature=<C>,humidity=<%>
//	fault,node_id=..,code=..                      count=1i
//
// Write errors are delivered asynchronously through SetOnError.
package influxdb
