package parser

import (
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
)

// Capability bits of the beacon and probe response fixed parameters.
const (
	capESS     = 0x0001
	capIBSS    = 0x0002
	capPrivacy = 0x0010
)

// Decoder turns captured 802.11 packets into classified frames.
type Decoder struct {
	GPS   ports.GPSProvider
	Debug bool

	now func() time.Time
}

// NewDecoder creates a decoder. gps may be nil when no receiver is attached.
func NewDecoder(gps ports.GPSProvider, debug bool) *Decoder {
	return &Decoder{
		GPS:   gps,
		Debug: debug,
		now:   time.Now,
	}
}

// Decode classifies one packet. ok is false for frames the tracker has no use
// for, such as control frames other than PS-Poll.
func (d *Decoder) Decode(packet gopacket.Packet) (f domain.Frame, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in Decoder: %v", r)
			f = domain.Frame{}
			ok = false
		}
	}()

	f.Length = len(packet.Data())
	f.Timestamp = packet.Metadata().Timestamp
	if f.Timestamp.IsZero() {
		f.Timestamp = d.now()
	}

	if rt, isRT := packet.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap); isRT {
		f.Radio = radioSample(rt)
		f.Corrupt = rt.Flags.BadFCS()
		f.Channel = frequencyToChannel(int(rt.ChannelFrequency))
	}

	if d.GPS != nil {
		if fix, has := d.GPS.Fix(); has {
			f.GPS = &fix
		}
	}

	dot11, isDot11 := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	if !isDot11 {
		if d.Debug {
			log.Printf("Decoder: no 802.11 layer in %d byte packet", f.Length)
		}
		f.Category = domain.CategoryNoise
		return f, true
	}

	f.Source = mac(dot11.Address2)
	f.Dest = mac(dot11.Address1)
	f.Encrypted = dot11.Flags.WEP()

	switch dot11.Type.MainType() {
	case layers.Dot11TypeMgmt:
		d.decodeMgmt(packet, dot11, &f)
	case layers.Dot11TypeData:
		decodeData(dot11, &f)
	case layers.Dot11TypeCtrl:
		if dot11.Type != layers.Dot11TypeCtrlPowersavePoll {
			return f, false
		}
		// PS-Poll carries the BSSID in the receiver slot
		f.Category = domain.CategoryPhy
		f.Subtype = domain.SubtypeOther
		f.BSSID = mac(dot11.Address1)
	default:
		f.Category = domain.CategoryUnknown
	}

	return f, true
}

func (d *Decoder) decodeMgmt(packet gopacket.Packet, dot11 *layers.Dot11, f *domain.Frame) {
	f.Category = domain.CategoryManagement
	f.BSSID = mac(dot11.Address3)

	var ieData []byte
	var caps uint16
	switch dot11.Type {
	case layers.Dot11TypeMgmtBeacon:
		f.Subtype = domain.SubtypeBeacon
		if beacon, ok := packet.Layer(layers.LayerTypeDot11MgmtBeacon).(*layers.Dot11MgmtBeacon); ok {
			ieData = beacon.LayerPayload()
			caps = beacon.Flags
			f.BeaconInterval = int(beacon.Interval)
		}
	case layers.Dot11TypeMgmtProbeResp:
		f.Subtype = domain.SubtypeProbeResp
		if resp, ok := packet.Layer(layers.LayerTypeDot11MgmtProbeResp).(*layers.Dot11MgmtProbeResp); ok {
			ieData = resp.LayerPayload()
			caps = resp.Flags
			f.BeaconInterval = int(resp.Interval)
		}
	case layers.Dot11TypeMgmtProbeReq:
		f.Subtype = domain.SubtypeProbeReq
		// A probing station is identified by its own address
		f.BSSID = f.Source
		// no fixed parameters, the elements start right after the header
		ieData = dot11.LayerPayload()
	default:
		f.Subtype = domain.SubtypeOther
		return
	}

	if caps&capIBSS != 0 && caps&capESS == 0 {
		f.Distrib = domain.DistribAdhoc
	}
	f.WEP = caps&capPrivacy != 0

	if ssid, ok := ie.ParseSSID(ieData); ok {
		f.SSID = ssid.Value
		f.SSIDBlank = ssid.Blank
	}
	if ch, err := ie.ParseChannel(ieData); err == nil {
		f.Channel = ch
	}
	f.MaxRate = ie.ParseMaxRate(ieData)
	f.BeaconInfo = ie.ParseBeaconInfo(ieData)
}

// decodeData picks the BSSID slot from the DS bits.
func decodeData(dot11 *layers.Dot11, f *domain.Frame) {
	f.Category = domain.CategoryData
	f.Subtype = domain.SubtypeOther

	toDS, fromDS := dot11.Flags.ToDS(), dot11.Flags.FromDS()
	switch {
	case toDS && fromDS:
		f.Distrib = domain.DistribInterDS
		f.BSSID = mac(dot11.Address2)
		f.Dest = mac(dot11.Address3)
		f.Source = mac(dot11.Address4)
	case toDS:
		f.Distrib = domain.DistribToDS
		f.BSSID = mac(dot11.Address1)
		f.Dest = mac(dot11.Address3)
	case fromDS:
		f.Distrib = domain.DistribFromDS
		f.BSSID = mac(dot11.Address2)
		f.Source = mac(dot11.Address3)
	default:
		f.Distrib = domain.DistribAdhoc
		f.BSSID = mac(dot11.Address3)
	}
}

// radioSample maps the radiotap header onto the tracker's layer-1 view.
func radioSample(rt *layers.RadioTap) *domain.RadioSample {
	r := &domain.RadioSample{
		Signal:   int(rt.DBMAntennaSignal),
		Noise:    int(rt.DBMAntennaNoise),
		DataRate: int(rt.Rate) * 5,
	}

	flags := rt.ChannelFlags
	switch {
	case rt.Present.MCS():
		r.Carrier = domain.Carrier80211n
	case flags.Ghz5() && flags.OFDM():
		r.Carrier = domain.Carrier80211a
	case flags.Ghz2() && (flags.OFDM() || flags.Dynamic()):
		r.Carrier = domain.Carrier80211g
	case flags.Ghz2() && flags.CCK():
		r.Carrier = domain.Carrier80211b
	case flags.GFSK():
		r.Carrier = domain.Carrier80211FHSS
	}

	switch {
	case flags.OFDM():
		r.Encoding = domain.EncodingOFDM
	case flags.CCK():
		r.Encoding = domain.EncodingCCK
	case flags.GFSK():
		r.Encoding = domain.EncodingFHSS
	}

	return r
}

func mac(hw []byte) domain.MAC {
	m, _ := domain.MACFromHardwareAddr(hw)
	return m
}

// frequencyToChannel converts a centre frequency in MHz to a channel number.
func frequencyToChannel(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq < 2484:
		return (freq - 2407) / 5
	case freq >= 5170 && freq <= 5825:
		return (freq - 5000) / 5
	case freq >= 5955 && freq <= 7115:
		return (freq - 5950) / 5
	}
	return 0
}
