package printer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"regexp"
	"strings"
)

var ipv4Candidate = regexp.MustCompile(`(?:^|[^\d.])((?:\d{1,3}\.){3}\d{1,3})(?:[^\d.]|$)`)

// ExtractIPv4 returns the first valid dotted-quad IPv4 literal found in s.
func ExtractIPv4(s string) string {
	for _, m := range ipv4Candidate.FindAllStringSubmatch(s, -1) {
		if ip := net.ParseIP(m[1]); ip != nil && ip.To4() != nil {
			return m[1]
		}
	}
	return ""
}

// decodeJSONList accepts both a single object and an array, as PowerShell's
// ConvertTo-Json emits either depending on the number of results.
func decodeJSONList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []T{}, nil
	}
	if data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

type win32Printer struct {
	Name    string `json:"Name"`
	Default bool   `json:"Default"`
}

// ParseWin32Printers parses `Get-CimInstance Win32_Printer | ConvertTo-Json` output.
func ParseWin32Printers(data []byte) ([]Descriptor, error) {
	raw, err := decodeJSONList[win32Printer](data)
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, Descriptor{Name: p.Name, IsDefault: p.Default})
	}
	return normalizeDefaults(out), nil
}

// ParseWmicPrinters parses the table printed by `wmic printer get Default,Name`.
//
//	Default  Name
//	FALSE    Microsoft Print to PDF
//	TRUE     Office Printer
func ParseWmicPrinters(out string) []Descriptor {
	printers := []Descriptor{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		flag := strings.ToUpper(fields[0])
		if flag != "TRUE" && flag != "FALSE" {
			continue // header or noise
		}
		name := strings.TrimSpace(line[len(fields[0]):])
		if name == "" {
			continue
		}
		printers = append(printers, Descriptor{Name: name, IsDefault: flag == "TRUE"})
	}
	return normalizeDefaults(printers)
}

// ParseLpstatPrinters extracts queue names from `lpstat -p` output.
func ParseLpstatPrinters(out string) []string {
	names := []string{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "printer" {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}

// ParseLpstatDefault extracts the default destination from `lpstat -d` output.
func ParseLpstatDefault(out string) string {
	const marker = "system default destination:"
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, marker); idx >= 0 {
			return strings.TrimSpace(line[idx+len(marker):])
		}
	}
	return ""
}

// splitSharedQueue splits a UNC queue name (\\server\share) into its parts.
func splitSharedQueue(name string) (server, share string, ok bool) {
	if !strings.HasPrefix(name, `\\`) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(name, `\\`), `\`, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
