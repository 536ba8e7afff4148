package hpack

const staticTableLen = 61

type staticEntry struct {
	name, value string
}

// RFC 7541 Appendix A. Slot 0 is unused so the array is indexed the same way
// as the wire.
var staticTable = [staticTableLen + 1]staticEntry{
	{},
	{":authority", ""},
	{":method", "GET"},
	{":method", "POST"},
	{":path", "/"},
	{":path", "/index.html"},
	{":scheme", "http"},
	{":scheme", "https"},
	{":status", "200"},
	{":status", "204"},
	{":status", "206"},
	{":status", "304"},
	{":status", "400"},
	{":status", "404"},
	{":status", "500"},
	{"accept-charset", ""},
	{"accept-encoding", "gzip, deflate"},
	{"accept-language", ""},
	{"accept-ranges", ""},
	{"accept", ""},
	{"access-control-allow-origin", ""},
	{"age", ""},
	{"allow", ""},
	{"authorization", ""},
	{"cache-control", ""},
	{"content-disposition", ""},
	{"content-encoding", ""},
	{"content-language", ""},
	{"content-length", ""},
	{"content-location", ""},
	{"content-range", ""},
	{"content-type", ""},
	{"cookie", ""},
	{"date", ""},
	{"etag", ""},
	{"expect", ""},
	{"expires", ""},
	{"from", ""},
	{"host", ""},
	{"if-match", ""},
	{"if-modified-since", ""},
	{"if-none-match", ""},
	{"if-range", ""},
	{"if-unmodified-since", ""},
	{"last-modified", ""},
	{"link", ""},
	{"location", ""},
	{"max-forwards", ""},
	{"proxy-authenticate", ""},
	{"proxy-authorization", ""},
	{"range", ""},
	{"referer", ""},
	{"refresh", ""},
	{"retry-after", ""},
	{"server", ""},
	{"set-cookie", ""},
	{"strict-transport-security", ""},
	{"transfer-encoding", ""},
	{"user-agent", ""},
	{"vary", ""},
	{"via", ""},
	{"www-authenticate", ""},
}

var (
	staticByName      map[string]uint64
	staticByNameValue map[staticEntry]uint64
)

func init() {
	staticByName = make(map[string]uint64, staticTableLen)
	staticByNameValue = make(map[staticEntry]uint64, staticTableLen)
	for i := staticTableLen; i >= 1; i-- {
		// walking backwards leaves the lowest index for repeated names
		staticByName[staticTable[i].name] = uint64(i)
		staticByNameValue[staticTable[i]] = uint64(i)
	}
}

func staticFindName(name string) uint64 {
	return staticByName[name]
}

func staticFind(name, value string) uint64 {
	return staticByNameValue[staticEntry{name, value}]
}
