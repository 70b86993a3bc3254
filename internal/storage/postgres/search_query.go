package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

const jobColumns = `id, field, region, description, visa_sponsor, experience, swedish, skills, education, last_application_date`

// BuildSearchQuery renders the parameterized read query for filter.
// filter.Field must be set.
func BuildSearchQuery(table string, filter crawler.SearchFilter) (string, []any) {
	args := []any{filter.Field}
	where := []string{"field = $1"}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Region != "" {
		where = append(where, "region = "+next(filter.Region))
	}
	if filter.MaxExperience != nil {
		where = append(where, "(experience IS NULL OR experience <= "+next(*filter.MaxExperience)+")")
	}
	for _, skill := range filter.ExcludeSkills {
		skill = crawler.JoinSkills([]string{skill})
		if skill == "" {
			continue
		}
		where = append(where, "(',' || COALESCE(skills, '') || ',') NOT LIKE "+next("%,"+escapeLike(skill)+",%"))
	}

	var order []string
	if filter.NeedsVisaSponsor {
		where = append(where, "(visa_sponsor IS NULL OR visa_sponsor = true)")
		order = append(order, "CASE WHEN visa_sponsor = true THEN 0 ELSE 1 END")
	}
	if !filter.SwedishFluent {
		where = append(where, "(swedish IS NULL OR swedish IN ('false', 'likely'))")
		order = append(order, "CASE WHEN swedish = 'likely' THEN 1 ELSE 0 END")
	}
	order = append(order, "id")

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		jobColumns, table, strings.Join(where, " AND "), strings.Join(order, ", "))
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
