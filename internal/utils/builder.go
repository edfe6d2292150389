package querybuilder

import (
	"fmt"
	"sort"
	"strings"
)

// QueryBuilder assembles SQL with "?" placeholders. Rebind the result for the target driver.
type QueryBuilder interface {
	Select(cols ...string) QueryBuilder
	From(table string) QueryBuilder
	Into(table string) QueryBuilder
	Where(clause string, args ...interface{}) QueryBuilder

	Or(clause string, args ...interface{}) QueryBuilder
	And(clause string, args ...interface{}) QueryBuilder

	OrderBy(col string, asc bool) QueryBuilder
	Limit(n int) QueryBuilder

	Insert(cols ...string) QueryBuilder
	Values(values ...interface{}) QueryBuilder
	Returning(cols ...string) QueryBuilder

	Update(table string, data UpdateData) QueryBuilder
	Delete(table string) QueryBuilder
	Build() (string, []interface{}, error)
}

// UpdateData maps column to new value. Columns are emitted in sorted order.
type UpdateData map[string]interface{}

type queryBuilder struct {
	table      string
	cols       []string
	conditions []Condition
	values     [][]interface{}
	updateData UpdateData
	orderBy    []string
	returning  []string
	limit      int
	isDelete   bool
	schema     string
}

func NewQueryBuilder(schema string) QueryBuilder {
	return &queryBuilder{
		schema: schema,
	}
}

func (q *queryBuilder) Select(cols ...string) QueryBuilder {
	q.cols = append(q.cols, cols...)
	return q
}

func (q *queryBuilder) Insert(cols ...string) QueryBuilder {
	q.cols = cols
	return q
}

func (q *queryBuilder) Values(values ...interface{}) QueryBuilder {
	q.values = append(q.values, values)
	return q
}

func (q *queryBuilder) Returning(cols ...string) QueryBuilder {
	q.returning = append(q.returning, cols...)
	return q
}

func (q *queryBuilder) Update(table string, data UpdateData) QueryBuilder {
	q.table = table
	q.updateData = data
	return q
}

func (q *queryBuilder) Delete(table string) QueryBuilder {
	q.table = table
	q.isDelete = true
	return q
}

func (q *queryBuilder) Or(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, Condition{condType: CondTypeOr, clause: clause, args: args})
	return q
}

func (q *queryBuilder) And(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, Condition{condType: CondTypeAnd, clause: clause, args: args})
	return q
}

func (q *queryBuilder) Where(clause string, args ...interface{}) QueryBuilder {
	return q.And(clause, args...)
}

func (q *queryBuilder) OrderBy(col string, asc bool) QueryBuilder {
	orderVector := "ASC"
	if !asc {
		orderVector = "DESC"
	}
	q.orderBy = append(q.orderBy, fmt.Sprintf("%s %s", col, orderVector))
	return q
}

func (q *queryBuilder) Limit(n int) QueryBuilder {
	q.limit = n
	return q
}

func (q *queryBuilder) From(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Into(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) qualifiedTable() string {
	if q.schema == "" {
		return q.table
	}
	return fmt.Sprintf("%s.%s", q.schema, q.table)
}

func buildCondition(conditions []Condition) (string, []interface{}) {
	parts := make([]string, 0, len(conditions)*2)
	args := make([]interface{}, 0)
	for i, cond := range conditions {
		if i > 0 {
			parts = append(parts, cond.condType.ToString())
		}
		parts = append(parts, cond.clause)
		args = append(args, cond.args...)
	}
	return strings.Join(parts, " "), args
}

func (q *queryBuilder) Build() (string, []interface{}, error) {
	if q.table == "" {
		return "", nil, fmt.Errorf("querybuilder: table is required")
	}
	switch {
	case len(q.values) > 0:
		return q.buildInsert()
	case len(q.updateData) > 0:
		return q.buildUpdate()
	case q.isDelete:
		return q.buildDelete()
	case len(q.cols) > 0:
		return q.buildSelect()
	}
	return "", nil, fmt.Errorf("querybuilder: nothing to build for %s", q.table)
}

func (q *queryBuilder) appendWhere(query string, args []interface{}) (string, []interface{}) {
	if len(q.conditions) == 0 {
		return query, args
	}
	condition, condArgs := buildCondition(q.conditions)
	return query + fmt.Sprintf(" WHERE %s", condition), append(args, condArgs...)
}

func (q *queryBuilder) appendReturning(query string) string {
	if len(q.returning) == 0 {
		return query
	}
	return query + fmt.Sprintf(" RETURNING %s", strings.Join(q.returning, ", "))
}

func (q *queryBuilder) buildSelect() (string, []interface{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(q.cols, ", "), q.qualifiedTable())
	query, args := q.appendWhere(query, nil)

	if len(q.orderBy) > 0 {
		query += fmt.Sprintf(" ORDER BY %s", strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	return query, args, nil
}

func (q *queryBuilder) buildInsert() (string, []interface{}, error) {
	numOfParam := len(q.cols)
	if numOfParam == 0 {
		return "", nil, fmt.Errorf("querybuilder: insert into %s without columns", q.table)
	}

	valueTuples := make([]string, 0, len(q.values))
	args := make([]interface{}, 0, numOfParam*len(q.values))
	for _, row := range q.values {
		if len(row) != numOfParam {
			return "", nil, fmt.Errorf("querybuilder: insert row has %d values for %d columns", len(row), numOfParam)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", numOfParam), ", ")
		valueTuples = append(valueTuples, fmt.Sprintf("(%s)", placeholders))
		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		q.qualifiedTable(), strings.Join(q.cols, ", "), strings.Join(valueTuples, ", "))
	return q.appendReturning(query), args, nil
}

func (q *queryBuilder) buildUpdate() (string, []interface{}, error) {
	cols := make([]string, 0, len(q.updateData))
	for col := range q.updateData {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	setClause := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		setClause = append(setClause, fmt.Sprintf("%s = ?", col))
		args = append(args, q.updateData[col])
	}

	query := fmt.Sprintf("UPDATE %s SET %s", q.qualifiedTable(), strings.Join(setClause, ", "))
	query, args = q.appendWhere(query, args)
	return q.appendReturning(query), args, nil
}

func (q *queryBuilder) buildDelete() (string, []interface{}, error) {
	if len(q.conditions) == 0 {
		return "", nil, fmt.Errorf("querybuilder: refusing unconditional delete from %s", q.table)
	}
	query, args := q.appendWhere(fmt.Sprintf("DELETE FROM %s", q.qualifiedTable()), nil)
	return q.appendReturning(query), args, nil
}
