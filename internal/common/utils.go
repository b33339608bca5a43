package common

import (
	"regexp"
	"strings"
)

// AccountIDLength is the number of digits in an AWS account ID
const AccountIDLength = 12

// RegionDisplayNames maps AWS region codes to the names used on the AWS pricing pages
var RegionDisplayNames = map[string]string{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"af-south-1":     "Africa (Cape Town)",
	"ap-east-1":      "Asia Pacific (Hong Kong)",
	"ap-south-2":     "Asia Pacific (Hyderabad)",
	"ap-southeast-3": "Asia Pacific (Jakarta)",
	"ap-southeast-4": "Asia Pacific (Melbourne)",
	"ap-southeast-5": "Asia Pacific (Malaysia)",
	"ap-southeast-7": "Asia Pacific (Thailand)",
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ca-central-1":   "Canada (Central)",
	"ca-west-1":      "Canada West (Calgary)",
	"eu-central-1":   "Europe (Frankfurt)",
	"eu-west-1":      "Europe (Ireland)",
	"eu-west-2":      "Europe (London)",
	"eu-south-1":     "Europe (Milan)",
	"eu-west-3":      "Europe (Paris)",
	"eu-south-2":     "Europe (Spain)",
	"eu-north-1":     "Europe (Stockholm)",
	"eu-central-2":   "Europe (Zurich)",
	"il-central-1":   "Israel (Tel Aviv)",
	"mx-central-1":   "Mexico (Central)",
	"me-south-1":     "Middle East (Bahrain)",
	"me-central-1":   "Middle East (UAE)",
	"sa-east-1":      "South America (São Paulo)",
	"us-gov-east-1":  "AWS GovCloud (US-East)",
	"us-gov-west-1":  "AWS GovCloud (US-West)",
	"cn-north-1":     "China (Beijing)",
	"cn-northwest-1": "China (Ningxia)",
}

var (
	accountIDPattern  = regexp.MustCompile(`^[0-9]{12}$`)
	regionCodePattern = regexp.MustCompile(`^[a-z]{2}(-gov|-iso[a-z]?)?-[a-z]+-[0-9]+$`)
)

// RegionDisplayName returns the human-readable region name, or the code itself when unknown
func RegionDisplayName(code string) string {
	if name, ok := RegionDisplayNames[code]; ok {
		return name
	}
	return code
}

// IsRegionCode checks whether s looks like an AWS region code (us-east-1, us-gov-west-1, ...)
func IsRegionCode(s string) bool {
	return regionCodePattern.MatchString(s)
}

// IsValidAccountID checks for a 12 digit numeric account ID
func IsValidAccountID(accountID string) bool {
	return accountIDPattern.MatchString(accountID)
}

// IsChinaPartition reports whether the partition is the AWS China partition
func IsChinaPartition(partition string) bool {
	return partition == "aws-cn"
}

// SplitList splits a comma separated flag value, trimming blanks and dropping empties
func SplitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// Dedupe returns values without duplicates, preserving first-seen order
func Dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
