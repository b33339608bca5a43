// Package instanceclass maps RDS DB instance classes to their default vCPU count.
package instanceclass

import "strings"

// sizeVCPUs is the vCPU count of the standard size names shared by most families
var sizeVCPUs = map[string]int{
	"medium":   2,
	"large":    2,
	"xlarge":   4,
	"2xlarge":  8,
	"4xlarge":  16,
	"8xlarge":  32,
	"12xlarge": 48,
	"16xlarge": 64,
	"24xlarge": 96,
	"32xlarge": 128,
	"48xlarge": 192,
}

// families lists the sizes each family is offered in, using the standard size vCPU counts
var families = map[string][]string{
	// general purpose
	"m5":     {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge"},
	"m5d":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge"},
	"m6g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"m6gd":   {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"m6i":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"m6id":   {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"m6idn":  {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"m6in":   {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"m7g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"m7i":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "48xlarge"},
	"m8g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "48xlarge"},
	"m4":     {"large", "xlarge", "2xlarge", "4xlarge", "16xlarge"},
	"m3":     {"large", "xlarge", "2xlarge"},
	"r3":     {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge"},
	"r4":     {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "16xlarge"},
	"r5":     {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge"},
	"r5b":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge"},
	"r5d":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge"},
	"r6g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"r6gd":   {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"r6i":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"r6id":   {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"r6idn":  {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"r6in":   {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"r7g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"r7i":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "48xlarge"},
	"r8g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "48xlarge"},
	"x2g":    {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge"},
	"x2idn":  {"16xlarge", "24xlarge", "32xlarge"},
	"x2iedn": {"xlarge", "2xlarge", "4xlarge", "8xlarge", "16xlarge", "24xlarge", "32xlarge"},
	"x2iezn": {"2xlarge", "4xlarge", "6xlarge", "8xlarge", "12xlarge"},
	"x1":     {"16xlarge", "32xlarge"},
	"x1e":    {"xlarge", "2xlarge", "4xlarge", "8xlarge", "16xlarge", "32xlarge"},
	"z1d":    {"large", "xlarge", "2xlarge", "3xlarge", "6xlarge", "12xlarge"},
	"t3":     {"micro", "small", "medium", "large", "xlarge", "2xlarge"},
	"t4g":    {"micro", "small", "medium", "large", "xlarge", "2xlarge"},
	"t2":     {"micro", "small", "medium", "large", "xlarge", "2xlarge"},
}

// exceptions are classes whose vCPU count differs from the standard size table
var exceptions = map[string]int{
	"db.t2.micro":       1,
	"db.t2.small":       1,
	"db.t3.micro":       2,
	"db.t3.small":       2,
	"db.t4g.micro":      2,
	"db.t4g.small":      2,
	"db.m3.medium":      1,
	"db.m4.10xlarge":    40,
	"db.m1.small":       1,
	"db.m1.medium":      1,
	"db.m1.large":       2,
	"db.m1.xlarge":      4,
	"db.m2.xlarge":      2,
	"db.m2.2xlarge":     4,
	"db.m2.4xlarge":     8,
	"db.x2iezn.6xlarge": 24,
	"db.z1d.3xlarge":    12,
	"db.z1d.6xlarge":    24,
}

// defaultTable is built once from families and exceptions
var defaultTable = buildDefaultTable()

func buildDefaultTable() map[string]int {
	table := make(map[string]int)
	for family, sizes := range families {
		for _, size := range sizes {
			if v, ok := sizeVCPUs[size]; ok {
				table["db."+family+"."+size] = v
			}
		}
	}
	for class, v := range exceptions {
		table[class] = v
	}
	return table
}

// Classifier looks up vCPU counts by DB instance class
type Classifier struct {
	table map[string]int
}

// NewClassifier creates a classifier over the built-in table plus extra classes.
// Extra entries override built-in ones; non-positive counts are ignored.
func NewClassifier(extra map[string]int) *Classifier {
	table := make(map[string]int, len(defaultTable)+len(extra))
	for class, v := range defaultTable {
		table[class] = v
	}
	for class, v := range extra {
		if v > 0 {
			table[normalize(class)] = v
		}
	}
	return &Classifier{table: table}
}

// NewDefaultClassifier creates a classifier over the built-in table
func NewDefaultClassifier() *Classifier {
	return NewClassifier(nil)
}

// VCPUs returns the vCPU count for an instance class. ok is false for unknown
// classes such as newly released families or db.serverless.
func (c *Classifier) VCPUs(class string) (int, bool) {
	v, ok := c.table[normalize(class)]
	return v, ok
}

func normalize(class string) string {
	return strings.ToLower(strings.TrimSpace(class))
}
