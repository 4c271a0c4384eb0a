package names

import (
	"strings"
	"unicode/utf8"
)

var nicknameClusters = [][]string{
	{"william", "bill", "billy", "will", "willy", "willie", "liam"},
	{"robert", "bob", "bobby", "rob", "robbie", "bert"},
	{"james", "jim", "jimmy", "jamie"},
	{"michael", "mike", "mikey", "mick"},
	{"richard", "rick", "ricky", "dick", "rich", "richie"},
	{"elizabeth", "liz", "lizzie", "beth", "betty", "betsy", "eliza"},
	{"margaret", "maggie", "meg", "peggy", "marge", "margie"},
	{"katherine", "catherine", "kathryn", "kate", "katie", "kathy", "cathy", "kat"},
	{"thomas", "tom", "tommy"},
	{"joseph", "joe", "joey"},
	{"john", "jack", "johnny", "jon"},
	{"jonathan", "jon", "jonny"},
	{"charles", "charlie", "chuck", "chas"},
	{"edward", "ed", "eddie", "ted", "ned"},
	{"theodore", "ted", "teddy", "theo"},
	{"anthony", "tony"},
	{"daniel", "dan", "danny"},
	{"david", "dave", "davey"},
	{"steven", "stephen", "steve"},
	{"christopher", "chris", "kit"},
	{"christine", "christina", "chris", "tina"},
	{"nicholas", "nick", "nicky"},
	{"benjamin", "ben", "benny"},
	{"samuel", "sam", "sammy"},
	{"samantha", "sam", "sammy"},
	{"alexander", "alex", "al", "sandy", "xander"},
	{"albert", "al", "bert"},
	{"alfred", "al", "alf", "fred"},
	{"frederick", "fred", "freddie", "freddy"},
	{"andrew", "andy", "drew"},
	{"matthew", "matt"},
	{"patrick", "pat", "paddy"},
	{"patricia", "pat", "patty", "trish"},
	{"jennifer", "jen", "jenny"},
	{"jessica", "jess", "jessie"},
	{"rebecca", "becky", "becca"},
	{"susan", "sue", "susie", "suzanne"},
	{"deborah", "debbie", "deb"},
	{"barbara", "barb", "barbie"},
	{"gregory", "greg"},
	{"jeffrey", "geoffrey", "jeff"},
	{"kenneth", "ken", "kenny"},
	{"ronald", "ron", "ronnie"},
	{"donald", "don", "donnie"},
	{"lawrence", "larry"},
	{"gerald", "jerry", "gerry"},
	{"timothy", "tim", "timmy"},
	{"peter", "pete"},
	{"philip", "phillip", "phil"},
	{"raymond", "ray"},
	{"henry", "hank", "harry"},
	{"harold", "harry", "hal"},
	{"walter", "walt", "wally"},
	{"eugene", "gene"},
	{"leonard", "leo", "len", "lenny"},
	{"vincent", "vince", "vinny"},
	{"zachary", "zach", "zack"},
	{"abraham", "abe"},
	{"nathaniel", "nathan", "nate"},
	{"victoria", "vicky", "tori"},
	{"virginia", "ginny"},
	{"dorothy", "dot", "dottie"},
	{"hillary", "hilary"},
	{"mitchell", "mitch"},
	{"joshua", "josh"},
	{"douglas", "doug"},
	{"francis", "frank", "frankie"},
	{"franklin", "frank"},
	{"cynthia", "cindy"},
	{"judith", "judy"},
	{"pamela", "pam"},
	{"kimberly", "kim"},
	{"muhammad", "mohammed", "mohamed", "mohammad"},
	{"vladimir", "vlad"},
}

// nicknameIndex maps a first name to every cluster it belongs to.
var nicknameIndex = buildNicknameIndex(nicknameClusters)

func buildNicknameIndex(clusters [][]string) map[string][]int {
	index := make(map[string][]int, len(clusters)*4)
	for id, cluster := range clusters {
		for _, name := range cluster {
			index[name] = append(index[name], id)
		}
	}
	return index
}

// FirstNameCompatible reports whether two first names may refer to the same
// person: identical, either empty, an initial matching the other's first
// letter, or members of the same nickname cluster.
func FirstNameCompatible(a, b string) bool {
	left := cleanToken(a)
	right := cleanToken(b)

	if left == right || left == "" || right == "" {
		return true
	}
	if isInitial(left) || isInitial(right) {
		l, _ := utf8.DecodeRuneInString(left)
		r, _ := utf8.DecodeRuneInString(right)
		return l == r
	}
	return SameNicknameCluster(left, right)
}

// SameNicknameCluster reports whether both names share a nickname cluster.
func SameNicknameCluster(a, b string) bool {
	left := nicknameIndex[strings.ToLower(a)]
	right := nicknameIndex[strings.ToLower(b)]
	for _, l := range left {
		for _, r := range right {
			if l == r {
				return true
			}
		}
	}
	return false
}

// IsInitial reports whether a name part is a single letter, with or without a period.
func IsInitial(part string) bool {
	return isInitial(cleanToken(part))
}

func isInitial(cleaned string) bool {
	return utf8.RuneCountInString(cleaned) == 1
}
