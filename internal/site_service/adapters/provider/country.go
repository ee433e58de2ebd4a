package provider

import "strings"

type country struct{ name, iso string }

var callingCodes = map[string]country{
	"1": {"United States", "US"}, "7": {"Russia", "RU"},
	"20": {"Egypt", "EG"}, "27": {"South Africa", "ZA"}, "30": {"Greece", "GR"},
	"31": {"Netherlands", "NL"}, "32": {"Belgium", "BE"}, "33": {"France", "FR"},
	"34": {"Spain", "ES"}, "36": {"Hungary", "HU"}, "39": {"Italy", "IT"},
	"40": {"Romania", "RO"}, "41": {"Switzerland", "CH"}, "43": {"Austria", "AT"},
	"44": {"United Kingdom", "GB"}, "45": {"Denmark", "DK"}, "46": {"Sweden", "SE"},
	"47": {"Norway", "NO"}, "48": {"Poland", "PL"}, "49": {"Germany", "DE"},
	"52": {"Mexico", "MX"}, "54": {"Argentina", "AR"}, "55": {"Brazil", "BR"},
	"56": {"Chile", "CL"}, "57": {"Colombia", "CO"}, "60": {"Malaysia", "MY"},
	"61": {"Australia", "AU"}, "62": {"Indonesia", "ID"}, "63": {"Philippines", "PH"},
	"64": {"New Zealand", "NZ"}, "65": {"Singapore", "SG"}, "66": {"Thailand", "TH"},
	"81": {"Japan", "JP"}, "82": {"South Korea", "KR"}, "84": {"Vietnam", "VN"},
	"86": {"China", "CN"}, "90": {"Turkey", "TR"}, "91": {"India", "IN"},
	"98": {"Iran", "IR"}, "234": {"Nigeria", "NG"}, "254": {"Kenya", "KE"},
	"351": {"Portugal", "PT"}, "353": {"Ireland", "IE"}, "358": {"Finland", "FI"},
	"370": {"Lithuania", "LT"}, "371": {"Latvia", "LV"}, "372": {"Estonia", "EE"},
	"380": {"Ukraine", "UA"}, "420": {"Czech Republic", "CZ"}, "852": {"Hong Kong", "HK"},
	"886": {"Taiwan", "TW"}, "966": {"Saudi Arabia", "SA"}, "971": {"United Arab Emirates", "AE"},
	"972": {"Israel", "IL"},
}

// NANP area codes outside the United States.
var canadianAreaCodes = []string{
	"204", "226", "236", "249", "250", "289", "306", "343", "365", "367", "403", "416", "418",
	"431", "437", "438", "450", "506", "514", "519", "548", "579", "581", "587", "604", "613",
	"639", "647", "672", "705", "709", "742", "778", "780", "782", "807", "819", "825", "867",
	"873", "902", "905",
}

func init() {
	for _, ac := range canadianAreaCodes {
		callingCodes["1"+ac] = country{"Canada", "CA"}
	}
}

// CountryForNumber derives a display country and ISO code from an E.164
// number by longest calling-code prefix.
func CountryForNumber(number string) (name, iso string) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	for n := min(4, len(digits)); n > 0; n-- {
		if c, ok := callingCodes[digits[:n]]; ok {
			return c.name, c.iso
		}
	}
	return "Unknown", ""
}
