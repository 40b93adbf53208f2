package canon

import (
    "regexp"
    "strings"
)

var rePunct = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// Key normalizes a free-text property identifier ("123 Main Street Apt 4,
// Austin, Texas 78701-1234") into a stable lookup key. Unit designators are
// dropped so every unit of a parcel shares one key.
func Key(identifier string) string {
    parts := strings.Split(identifier, ",")
    out := make([]string, 0, len(parts))
    for i, p := range parts {
        p = strings.TrimSpace(strings.ToUpper(p))
        if i == 0 {
            p = stripUnit(p)
        }
        p = collapseSpaces(rePunct.ReplaceAllString(p, " "))
        switch {
        case i == 0:
            p = abbreviateSuffix(p)
        case i == len(parts)-1:
            p = normalizeRegion(p)
        }
        if p != "" {
            out = append(out, p)
        }
    }
    return strings.ToLower(strings.Join(out, "|"))
}

// normalizeRegion turns "TEXAS 78701 1234" into "TX 78701".
func normalizeRegion(p string) string {
    toks := strings.Fields(p)
    if len(toks) == 0 {
        return ""
    }
    var zip string
    last := toks[len(toks)-1]
    if isDigits(last) && len(toks) > 1 && len(last) == 4 && isDigits(toks[len(toks)-2]) && len(toks[len(toks)-2]) == 5 {
        toks = toks[:len(toks)-1] // ZIP+4 split by the punctuation pass
        last = toks[len(toks)-1]
    }
    if isDigits(last) && len(last) >= 5 {
        zip = trimZIP(last)
        toks = toks[:len(toks)-1]
    }
    state := stateAbbrev(strings.Join(toks, " "))
    return strings.TrimSpace(state + " " + zip)
}

func isDigits(s string) bool {
    if s == "" {
        return false
    }
    for _, r := range s {
        if r < '0' || r > '9' {
            return false
        }
    }
    return true
}

func collapseSpaces(s string) string {
    return strings.Join(strings.Fields(s), " ")
}

func trimZIP(z string) string {
    z = strings.TrimSpace(z)
    if len(z) >= 5 { return z[:5] }
    return z
}

func stripUnit(s string) string {
    // Remove trailing unit designators like APT, UNIT, STE, SUITE, #
    toks := []string{" APT ", " UNIT ", " STE ", " SUITE ", " #"}
    up := " " + s + " "
    for _, t := range toks {
        if i := strings.Index(up, t); i >= 0 {
            return strings.TrimSpace(up[:i])
        }
    }
    return strings.TrimSpace(s)
}

func abbreviateSuffix(s string) string {
    // Basic USPS-style suffix normalization
    repl := map[string]string{
        " STREET": " ST",
        " ROAD": " RD",
        " AVENUE": " AVE",
        " BOULEVARD": " BLVD",
        " DRIVE": " DR",
        " LANE": " LN",
        " COURT": " CT",
        " CIRCLE": " CIR",
        " TERRACE": " TER",
        " PLACE": " PL",
        " PARKWAY": " PKWY",
        " HIGHWAY": " HWY",
    }
    out := s
    for k, v := range repl { out = strings.ReplaceAll(out, k, v) }
    return out
}

func stateAbbrev(s string) string {
    m := map[string]string{
        "ALABAMA":"AL","ALASKA":"AK","ARIZONA":"AZ","ARKANSAS":"AR","CALIFORNIA":"CA","COLORADO":"CO","CONNECTICUT":"CT","DELAWARE":"DE","FLORIDA":"FL","GEORGIA":"GA","HAWAII":"HI","IDAHO":"ID","ILLINOIS":"IL","INDIANA":"IN","IOWA":"IA","KANSAS":"KS","KENTUCKY":"KY","LOUISIANA":"LA","MAINE":"ME","MARYLAND":"MD","MASSACHUSETTS":"MA","MICHIGAN":"MI","MINNESOTA":"MN","MISSISSIPPI":"MS","MISSOURI":"MO","MONTANA":"MT","NEBRASKA":"NE","NEVADA":"NV","NEW HAMPSHIRE":"NH","NEW JERSEY":"NJ","NEW MEXICO":"NM","NEW YORK":"NY","NORTH CAROLINA":"NC","NORTH DAKOTA":"ND","OHIO":"OH","OKLAHOMA":"OK","OREGON":"OR","PENNSYLVANIA":"PA","RHODE ISLAND":"RI","SOUTH CAROLINA":"SC","SOUTH DAKOTA":"SD","TENNESSEE":"TN","TEXAS":"TX","UTAH":"UT","VERMONT":"VT","VIRGINIA":"VA","WASHINGTON":"WA","WEST VIRGINIA":"WV","WISCONSIN":"WI","WYOMING":"WY",
    }
    if v, ok := m[s]; ok { return v }
    return s
}


// PropertyKey is Key, or the trimmed identifier itself when it has no
// canonical form. Store rows are always keyed by a non-empty value.
func PropertyKey(identifier string) string {
    if k := Key(identifier); k != "" {
        return k
    }
    return strings.TrimSpace(identifier)
}
