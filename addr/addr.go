// Package addr parses the connection address list grammar:
// comma-separated entries, each an optional parenthesized group of
// codec-chain-prefixed host:port targets with optional bracketed
// properties, e.g.
// "(tls[trustStore=ca.jks]+host1:7300[username=u,password=p]),host2:7301".
// A small recursive-descent parser; no DNS resolution happens here.
package addr

import (
	"strconv"
	"strings"

	"github.com/feedcore/client/cmn/cos"
)

// Codec is one entry in an address's codec chain, outermost first as
// written (e.g. "tls+gzip+host:port" decodes to [tls, gzip]).
type Codec struct {
	Name  string
	Props map[string]string
}

// Address is one resolved connection target.
type Address struct {
	Codecs   []Codec
	Host     string
	Port     int
	User     string
	Password string
}

// codecKeys lists the property keys each recognized codec accepts; a
// key outside its codec's set is rejected rather than ignored, so a
// typo ("keystore") fails loudly at parse time instead of silently
// producing an unauthenticated TLS config.
var codecKeys = map[string]map[string]bool{
	"tls": {
		"keyStore": true, "keyStorePassword": true,
		"trustStore": true, "trustStorePassword": true,
	},
	"gzip": {},
}

// entryKeys lists the property keys an entry's trailing bracket group
// accepts.
var entryKeys = map[string]bool{"username": true, "password": true}

// Parse splits s into its comma-separated entries (honoring
// parenthesized groups, which may themselves contain commas) and
// parses each into an Address. An entry with no explicit port inherits
// the port of the last entry in the list that specified one — a
// "several hosts, one port" shorthand — which requires the final entry
// to carry a port, else the whole list is invalid.
func Parse(s string) ([]Address, error) {
	entries, err := splitEntries(s)
	if err != nil {
		return nil, err
	}
	var out []Address
	for _, e := range entries {
		a, err := parseEntry(e)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, cos.NewErr(cos.InvalidFunctionArg, "empty address list")
	}
	if out[len(out)-1].Port < 0 {
		return nil, cos.NewErr(cos.InvalidPortValue, "last entry %q must specify a port", entries[len(entries)-1])
	}
	inherited := -1
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Port >= 0 {
			if inherited < 0 {
				inherited = out[i].Port
			}
			continue
		}
		out[i].Port = inherited
	}
	return out, nil
}

// splitEntries breaks s on top-level commas, treating
// "(" ... ")" groups (which may contain their own commas, e.g. in a
// property list) as atomic and stripping the surrounding parens.
func splitEntries(s string) ([]string, error) {
	var entries []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, cos.NewErr(cos.InvalidFunctionArg, "unbalanced ')' in address list")
			}
		case ',':
			if depth == 0 {
				if e := strings.TrimSpace(s[start:i]); e != "" {
					entries = append(entries, e)
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, cos.NewErr(cos.InvalidFunctionArg, "unbalanced '(' in address list")
	}
	if e := strings.TrimSpace(s[start:]); e != "" {
		entries = append(entries, e)
	}
	for i, e := range entries {
		if strings.HasPrefix(e, "(") && strings.HasSuffix(e, ")") {
			entries[i] = strings.TrimSpace(e[1 : len(e)-1])
		}
	}
	return entries, nil
}

// parseEntry parses one "codec+codec+...+host:port[props]" entry. An
// entry without ":port" gets Port == -1, resolved by Parse's
// inheritance pass.
func parseEntry(entry string) (Address, error) {
	parts := strings.Split(entry, "+")
	hostPortProps := parts[len(parts)-1]
	var codecs []Codec
	for _, name := range parts[:len(parts)-1] {
		c, err := parseCodec(name)
		if err != nil {
			return Address{}, err
		}
		codecs = append(codecs, c)
	}

	body := hostPortProps
	var props map[string]string
	if i := strings.IndexByte(body, '['); i >= 0 {
		if !strings.HasSuffix(body, "]") {
			return Address{}, cos.NewErr(cos.InvalidFunctionArg, "unterminated property list in %q", entry)
		}
		var err error
		props, err = parseProps(body[i+1 : len(body)-1])
		if err != nil {
			return Address{}, err
		}
		body = body[:i]
	}
	for k := range props {
		if !entryKeys[k] {
			return Address{}, cos.NewErr(cos.InvalidFunctionArg, "unknown entry property %q in %q", k, entry)
		}
	}

	host, port, err := parseHostPort(body)
	if err != nil {
		return Address{}, err
	}
	return Address{
		Codecs:   codecs,
		Host:     host,
		Port:     port,
		User:     props["username"],
		Password: props["password"],
	}, nil
}

func parseCodec(s string) (Codec, error) {
	name := s
	var props map[string]string
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Codec{}, cos.NewErr(cos.InvalidFunctionArg, "unterminated property list in codec %q", s)
		}
		name = s[:i]
		var err error
		props, err = parseProps(s[i+1 : len(s)-1])
		if err != nil {
			return Codec{}, err
		}
	}
	name = strings.TrimSpace(name)
	allowed, known := codecKeys[name]
	if !known {
		return Codec{}, cos.NewErr(cos.UnknownCodec, "unknown codec %q", name)
	}
	for k := range props {
		if !allowed[k] {
			return Codec{}, cos.NewErr(cos.InvalidFunctionArg, "unknown key %q for codec %q", k, name)
		}
	}
	return Codec{Name: name, Props: props}, nil
}

func parseProps(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	props := map[string]string{}
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			return nil, cos.NewErr(cos.InvalidFunctionArg, "malformed property %q", kv)
		}
		k := strings.TrimSpace(kv[:eq])
		v := strings.TrimSpace(kv[eq+1:])
		if k == "" {
			return nil, cos.NewErr(cos.InvalidFunctionArg, "empty property key in %q", kv)
		}
		props[k] = v
	}
	return props, nil
}

func parseHostPort(s string) (string, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, cos.NewErr(cos.InvalidFunctionArg, "empty host:port")
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, -1, nil
	}
	host := s[:i]
	portStr := s[i+1:]
	if host == "" {
		return "", 0, cos.NewErr(cos.InvalidFunctionArg, "empty host in %q", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, cos.NewErr(cos.InvalidPortValue, "invalid port %q", portStr)
	}
	return host, port, nil
}
