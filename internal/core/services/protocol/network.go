package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// SerializeNetwork renders the requested NETWORK fields of net, in request
// order, joined by single spaces. Each field is computed at most once per
// call through cache. An out-of-range field aborts the call with
// domain.ErrUnknownField and no output.
func SerializeNetwork(net *domain.TrackedNetwork, fields []int, cache *FieldCache, policy CacheHitPolicy) (string, error) {
	out := make([]string, 0, len(fields))
	for _, fnum := range fields {
		if fnum < 0 || fnum >= networkMaxField {
			return "", fmt.Errorf("%w: %d", domain.ErrUnknownField, fnum)
		}

		if v, ok := cache.Get(fnum); ok {
			out = append(out, v)
			if policy == StopOnCacheHit {
				break
			}
			continue
		}

		v := renderNetworkField(net, fnum)
		cache.Set(fnum, v)
		out = append(out, v)
	}
	return strings.Join(out, " "), nil
}

func renderNetworkField(net *domain.TrackedNetwork, fnum int) string {
	switch fnum {
	case NetworkBSSID:
		return net.BSSID.String()
	case NetworkType:
		return itoa(int(net.Type))
	case NetworkSSID:
		if (net.Cloaked && !net.Uncloaked) || net.SSID == "" {
			return EmptyString
		}
		return wrap(net.SSID)
	case NetworkBeaconInfo:
		return wrap(net.BeaconInfo)
	case NetworkLLCPackets:
		return itoa(net.LLCPackets)
	case NetworkDataPackets:
		return itoa(net.DataPackets)
	case NetworkCryptPackets:
		return itoa(net.CryptPackets)
	case NetworkWeakPackets:
		return itoa(net.WeakPackets)
	case NetworkChannel:
		return itoa(net.Channel)
	case NetworkWEP:
		return strconv.FormatUint(uint64(net.Crypt), 10)
	case NetworkFirstTime:
		return strconv.FormatInt(net.FirstSeen.Unix(), 10)
	case NetworkLastTime:
		return strconv.FormatInt(net.LastSeen.Unix(), 10)
	case NetworkAType:
		return itoa(int(net.IP.Type))
	case NetworkRangeIP:
		return net.IP.Block.String()
	case NetworkNetmaskIP:
		return net.IP.Netmask.String()
	case NetworkGatewayIP:
		return net.IP.Gateway.String()
	case NetworkGPSFixed:
		return boolDigit(net.GPS.Valid)
	case NetworkMinLat:
		return ftoa(net.GPS.MinLat)
	case NetworkMinLon:
		return ftoa(net.GPS.MinLon)
	case NetworkMinAlt:
		return ftoa(net.GPS.MinAlt)
	case NetworkMinSpd:
		return ftoa(net.GPS.MinSpeed)
	case NetworkMaxLat:
		return ftoa(net.GPS.MaxLat)
	case NetworkMaxLon:
		return ftoa(net.GPS.MaxLon)
	case NetworkMaxAlt:
		return ftoa(net.GPS.MaxAlt)
	case NetworkMaxSpd:
		return ftoa(net.GPS.MaxSpeed)
	case NetworkCloaked:
		return boolDigit(net.Cloaked)
	case NetworkBeaconRate:
		return itoa(net.BeaconRate)
	case NetworkMaxRate:
		return ftoa(net.MaxRate)
	case NetworkSignal:
		return itoa(net.Signal.LastSignal)
	case NetworkNoise:
		return itoa(net.Signal.LastNoise)
	case NetworkBestSignal:
		return itoa(net.Signal.MaxSignal)
	case NetworkBestNoise:
		return itoa(net.Signal.MaxNoise)
	case NetworkBestLat:
		return ftoa(net.Signal.PeakLat)
	case NetworkBestLon:
		return ftoa(net.Signal.PeakLon)
	case NetworkBestAlt:
		return ftoa(net.Signal.PeakAlt)
	case NetworkAggLat:
		return ftoa(net.GPS.AggLat)
	case NetworkAggLon:
		return ftoa(net.GPS.AggLon)
	case NetworkAggAlt:
		return ftoa(net.GPS.AggAlt)
	case NetworkAggPoints:
		return strconv.FormatInt(net.GPS.AggPoints, 10)
	case NetworkDatasize:
		return strconv.FormatInt(net.Datasize, 10)
	case NetworkTurbocellNID:
		return EmptyString
	case NetworkCarrierSet:
		return strconv.FormatUint(uint64(net.Signal.Carriers), 10)
	case NetworkMaxSeenRate:
		return itoa(net.Signal.MinSeenRate)
	case NetworkEncodingSet:
		return strconv.FormatUint(uint64(net.Signal.Encodings), 10)
	case NetworkDecrypted:
		return itoa(net.Decrypted)
	case NetworkDupeIVPackets:
		return itoa(net.DupeIVs)
	default:
		// octets, manufkey, manufscore, quality, bestquality, turbocell mode/sat
		return "0"
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// ftoa renders floats like a default C++ stream: six significant digits,
// shortest form.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
