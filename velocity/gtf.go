package velocity

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/carbocation/pfx"
)

// gtfCheckLines bounds how much of a reference annotation ValidateGTF reads.
const gtfCheckLines = 100

type KeyValue struct {
	Key   string
	Value string
}

// ParseAttributes splits the ninth GTF column, e.g.
// gene_id "ENSG00000223972"; gene_name "DDX11L1";
func ParseAttributes(attr string) ([]KeyValue, error) {
	out := make([]KeyValue, 0)

	for i, attribute := range splitAttributes(attr) {
		parts := strings.SplitN(strings.TrimSpace(attribute), " ", 2)
		if x := len(parts); x < 2 {
			// Line ends in a semicolon
			if strings.TrimSpace(attribute) == "" {
				continue
			}
			return nil, fmt.Errorf("attribute %d (%q) has no value", i, attribute)
		}

		out = append(out, KeyValue{Key: parts[0], Value: strings.Trim(parts[1], "\"")})
	}

	return out, nil
}

// splitAttributes splits on semicolons that are not inside a quoted value.
func splitAttributes(attr string) []string {
	var out []string

	quoted := false
	start := 0
	for i := 0; i < len(attr); i++ {
		switch attr[i] {
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				out = append(out, attr[start:i])
				start = i + 1
			}
		}
	}

	return append(out, attr[start:])
}

// ValidateGTF checks that the start of a reference file looks like GTF: nine
// tab-separated columns with a parseable attribute column. It catches
// truncated or mis-named downloads before velocyto spends an hour on them.
func ValidateGTF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := 0
	for i := 0; scanner.Scan() && seen < gtfCheckLines; i++ {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		row := strings.Split(line, "\t")
		if x := len(row); x < 9 {
			return fmt.Errorf("%s: GTF 0-based row %d had %d columns, expected 9", path, i, x)
		}

		if _, err := ParseAttributes(row[8]); err != nil {
			return fmt.Errorf("%s: GTF 0-based row %d: %w", path, i, err)
		}

		seen++
	}
	if err := scanner.Err(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if seen == 0 {
		return fmt.Errorf("%s: no GTF records found", path)
	}

	return nil
}
