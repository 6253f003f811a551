package domain

// Carrier is the PHY carrier a frame was received on.
type Carrier uint8

const (
	CarrierUnknown Carrier = iota
	Carrier80211b
	Carrier80211bPlus
	Carrier80211a
	Carrier80211g
	Carrier80211FHSS
	Carrier80211DSSS
	Carrier80211n
)

// Encoding is the modulation a frame was received with.
type Encoding uint8

const (
	EncodingUnknown Encoding = iota
	EncodingCCK
	EncodingPBCC
	EncodingOFDM
	EncodingDSSS
	EncodingFHSS
)

// CarrierSet accumulates every Carrier observed for a record.
type CarrierSet uint32

// With returns the set with c added.
func (s CarrierSet) With(c Carrier) CarrierSet {
	return s | 1<<c
}

// Has reports whether c was observed.
func (s CarrierSet) Has(c Carrier) bool {
	return s&(1<<c) != 0
}

// EncodingSet accumulates every Encoding observed for a record.
type EncodingSet uint32

// With returns the set with e added.
func (s EncodingSet) With(e Encoding) EncodingSet {
	return s | 1<<e
}

// Has reports whether e was observed.
func (s EncodingSet) Has(e Encoding) bool {
	return s&(1<<e) != 0
}

// CryptSet holds the encryption capability flags seen for a network.
type CryptSet uint32

const (
	CryptNone    CryptSet = 0
	CryptUnknown CryptSet = 1 << 0
	CryptWEP     CryptSet = 1 << 1
	CryptLayer3  CryptSet = 1 << 2
)

// Has reports whether every flag in f is set.
func (s CryptSet) Has(f CryptSet) bool {
	return s&f == f
}
