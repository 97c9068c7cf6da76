// Package dht drives DHT11 and DHT22 temperature/humidity sensors over a
// single periph.io GPIO data line.
//
// The sensor is bit-banged: the host pulls the line low to request a
// sample, then times the high pulses the sensor sends back. A short high
// pulse is a 0 bit, a long one is a 1 bit. Forty bits form five bytes:
// humidity, temperature and a checksum.
//
// Example usage:
//
//	pin := gpioreg.ByName("GPIO4")
//	s, err := dht.New(pin, dht.DHT22)
//	if err != nil {
//	    return err
//	}
//	if err := s.Measure(); err != nil {
//	    return err
//	}
//	t, _ := s.Temperature()
//	h, _ := s.Humidity()
package dht
