package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Path Parser
// ============================================================

var (
	commandRe = regexp.MustCompile(`([MmLlHhVvZz])([^MmLlHhVvZz]*)`)
	numberRe  = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)
	allowedRe = regexp.MustCompile(`^[MmLlHhVvZz0-9eE.,+\-\s]*$`)
)

// Polyline: ломаная одного подпути; у замкнутой последняя точка равна первой.
type Polyline []r2.Vec

// Closed сообщает, замкнута ли ломаная.
func (p Polyline) Closed() bool {
	return len(p) > 2 && p[0] == p[len(p)-1]
}

// ParsePath разбирает данные SVG path (команды M, L, H, V, Z в обоих регистрах)
// в ломаные. Каждая команда M начинает новый подпуть; лишние пары координат
// после M трактуются как L.
func ParsePath(d string) ([]Polyline, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, fmt.Errorf("empty path")
	}
	if !allowedRe.MatchString(d) {
		return nil, fmt.Errorf("unsupported path data %q", d)
	}
	if !strings.ContainsAny(d[:1], "Mm") {
		return nil, fmt.Errorf("path must start with a moveto command")
	}

	var paths []Polyline
	var current Polyline
	var cur, start r2.Vec

	flush := func() {
		if len(current) > 1 {
			paths = append(paths, current)
		}
		current = nil
	}

	for _, match := range commandRe.FindAllStringSubmatch(d, -1) {
		cmd := match[1]
		args, err := parseCoords(match[2])
		if err != nil {
			return nil, err
		}
		rel := strings.ToLower(cmd) == cmd

		switch strings.ToUpper(cmd) {
		case "M":
			if len(args) < 2 || len(args)%2 != 0 {
				return nil, fmt.Errorf("%s needs coordinate pairs, got %d number(s)", cmd, len(args))
			}
			flush()
			for i := 0; i < len(args); i += 2 {
				p := r2.Vec{X: args[i], Y: args[i+1]}
				if rel {
					p = r2.Add(cur, p)
				}
				cur = p
				if i == 0 {
					start = p
				}
				current = append(current, p)
			}

		case "L":
			if len(args) < 2 || len(args)%2 != 0 {
				return nil, fmt.Errorf("%s needs coordinate pairs, got %d number(s)", cmd, len(args))
			}
			for i := 0; i < len(args); i += 2 {
				p := r2.Vec{X: args[i], Y: args[i+1]}
				if rel {
					p = r2.Add(cur, p)
				}
				cur = p
				current = append(current, p)
			}

		case "H", "V":
			if len(args) == 0 {
				return nil, fmt.Errorf("%s needs at least one number", cmd)
			}
			for _, v := range args {
				switch {
				case cmd == "H":
					cur.X = v
				case cmd == "h":
					cur.X += v
				case cmd == "V":
					cur.Y = v
				default:
					cur.Y += v
				}
				current = append(current, cur)
			}

		case "Z":
			if len(current) > 0 {
				if current[len(current)-1] != start {
					current = append(current, start)
				}
				cur = start
				flush()
				current = Polyline{start}
			}
		}
	}
	flush()

	if len(paths) == 0 {
		return nil, fmt.Errorf("path has no segments")
	}
	return paths, nil
}

func parseCoords(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := numberRe.FindAllString(s, -1)
	coords := make([]float64, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", part, err)
		}
		coords = append(coords, val)
	}
	return coords, nil
}
