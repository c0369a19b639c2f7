package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"catalog-admin/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoCategoryAdapter is a DynamoDB-backed CategoryRepo implementation.
type DynamoCategoryAdapter struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoCategoryAdapter(client *dynamodb.Client, table string) *DynamoCategoryAdapter {
	return &DynamoCategoryAdapter{client: client, table: table}
}

type ddbCategory struct {
	CategoryID   string   `dynamodbav:"id"`
	Name         string   `dynamodbav:"name"`
	Slug         string   `dynamodbav:"slug"`
	Description  string   `dynamodbav:"description,omitempty"`
	ParentID     string   `dynamodbav:"parent_id,omitempty"`
	Image        string   `dynamodbav:"image,omitempty"`
	Images       []string `dynamodbav:"images,omitempty"`
	IsActive     bool     `dynamodbav:"is_active"`
	CreatedAt    string   `dynamodbav:"created_at"`
	UpdatedAt    string   `dynamodbav:"updated_at"`
	CreatedByUID string   `dynamodbav:"created_by_uid,omitempty"`
	CreatedByEml string   `dynamodbav:"created_by_email,omitempty"`
	DeletedAt    *string  `dynamodbav:"deleted_at,omitempty"`
}

func (d *DynamoCategoryAdapter) toModel(dc *ddbCategory) *models.Category {
	cat := &models.Category{
		Name:        dc.Name,
		Slug:        dc.Slug,
		Description: dc.Description,
		Image:       dc.Image,
		Images:      dc.Images,
		IsActive:    dc.IsActive,
		CreatedBy:   models.CreatedBy{UID: dc.CreatedByUID, Email: dc.CreatedByEml},
	}
	cat.ID, _ = uuid.Parse(dc.CategoryID)
	if dc.ParentID != "" {
		if u, err := uuid.Parse(dc.ParentID); err == nil {
			cat.ParentID = &u
		}
	}
	if t, err := time.Parse(time.RFC3339, dc.CreatedAt); err == nil {
		cat.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dc.UpdatedAt); err == nil {
		cat.UpdatedAt = t
	}
	if dc.DeletedAt != nil {
		if t, err := time.Parse(time.RFC3339, *dc.DeletedAt); err == nil {
			cat.DeletedAt = &t
		}
	}
	return cat
}

func (d *DynamoCategoryAdapter) toDDB(cat *models.Category) *ddbCategory {
	dc := &ddbCategory{
		CategoryID:   cat.ID.String(),
		Name:         cat.Name,
		Slug:         cat.Slug,
		Description:  cat.Description,
		Image:        cat.Image,
		Images:       cat.Images,
		IsActive:     cat.IsActive,
		CreatedAt:    cat.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    cat.UpdatedAt.Format(time.RFC3339),
		CreatedByUID: cat.CreatedBy.UID,
		CreatedByEml: cat.CreatedBy.Email,
	}
	if cat.ParentID != nil {
		dc.ParentID = cat.ParentID.String()
	}
	if cat.DeletedAt != nil {
		s := cat.DeletedAt.Format(time.RFC3339)
		dc.DeletedAt = &s
	}
	return dc
}

func (d *DynamoCategoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dc ddbCategory
	if err := attributevalue.UnmarshalMap(out.Item, &dc); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	// Skip soft-deleted
	if dc.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return d.toModel(&dc), nil
}

func (d *DynamoCategoryAdapter) FindByName(ctx context.Context, name string) (*models.Category, error) {
	// Scan with filter (for production, use a GSI on name)
	filterExpr := "attribute_not_exists(deleted_at) AND #n = :name"
	exprNames := map[string]string{"#n": "name"}
	exprVals, _ := attributevalue.MarshalMap(map[string]string{":name": name})

	input := &dynamodb.ScanInput{
		TableName:                 &d.table,
		FilterExpression:          &filterExpr,
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprVals,
	}
	out, err := d.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	var dc ddbCategory
	if err := attributevalue.UnmarshalMap(out.Items[0], &dc); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return d.toModel(&dc), nil
}

func (d *DynamoCategoryAdapter) FindByNames(ctx context.Context, names []string) ([]models.Category, error) {
	if len(names) == 0 {
		return []models.Category{}, nil
	}

	// Build filter: name IN (:n0, :n1, ...)
	placeholders := make([]string, len(names))
	exprVals := make(map[string]types.AttributeValue)
	for i, name := range names {
		ph := fmt.Sprintf(":n%d", i)
		placeholders[i] = ph
		av, _ := attributevalue.Marshal(name)
		exprVals[ph] = av
	}
	filterExpr := fmt.Sprintf("attribute_not_exists(deleted_at) AND #n IN (%s)", strings.Join(placeholders, ", "))
	exprNames := map[string]string{"#n": "name"}

	input := &dynamodb.ScanInput{
		TableName:                 &d.table,
		FilterExpression:          &filterExpr,
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprVals,
	}

	out, err := d.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	var results []models.Category
	for _, item := range out.Items {
		var dc ddbCategory
		if err := attributevalue.UnmarshalMap(item, &dc); err != nil {
			continue
		}
		results = append(results, *d.toModel(&dc))
	}
	return results, nil
}

// listFilterExpression builds the Scan filter for listings. Top-level means
// the parent_id attribute is absent; updates that clear a parent remove the
// attribute rather than writing an empty string, so absence stays reliable.
func listFilterExpression(topLevelOnly bool) string {
	expr := "attribute_not_exists(deleted_at)"
	if topLevelOnly {
		expr += " AND attribute_not_exists(parent_id)"
	}
	return expr
}

func (d *DynamoCategoryAdapter) FindAll(ctx context.Context, topLevelOnly bool) ([]models.Category, error) {
	filterExpr := listFilterExpression(topLevelOnly)
	input := &dynamodb.ScanInput{
		TableName:        &d.table,
		FilterExpression: &filterExpr,
	}

	var results []models.Category
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, item := range page.Items {
			var dc ddbCategory
			if err := attributevalue.UnmarshalMap(item, &dc); err != nil {
				continue
			}
			results = append(results, *d.toModel(&dc))
		}
	}

	// Scans come back unordered; the listing contract is by name.
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (d *DynamoCategoryAdapter) Create(ctx context.Context, category *models.Category) error {
	dc := d.toDDB(category)
	item, err := attributevalue.MarshalMap(dc)
	if err != nil {
		return fmt.Errorf("marshal category: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &d.table, Item: item})
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// buildUpdateExpression turns an update map into a DynamoDB update
// expression. A nil value removes the attribute instead of setting it, so
// attribute_not_exists filters keep matching after the update.
func buildUpdateExpression(updates map[string]interface{}) (string, map[string]string, map[string]types.AttributeValue, error) {
	exprNames := make(map[string]string, len(updates))
	exprVals := make(map[string]types.AttributeValue)
	var setParts, removeParts []string
	i := 0
	for k, v := range updates {
		attrName := fmt.Sprintf("#a%d", i)
		exprNames[attrName] = k
		if v == nil {
			removeParts = append(removeParts, attrName)
			i++
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal update value: %w", err)
		}
		ph := fmt.Sprintf(":v%d", i)
		exprVals[ph] = av
		setParts = append(setParts, fmt.Sprintf("%s = %s", attrName, ph))
		i++
	}

	var expr string
	if len(setParts) > 0 {
		expr = "SET " + strings.Join(setParts, ", ")
	}
	if len(removeParts) > 0 {
		if expr != "" {
			expr += " "
		}
		expr += "REMOVE " + strings.Join(removeParts, ", ")
	}
	return expr, exprNames, exprVals, nil
}

func (d *DynamoCategoryAdapter) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	expr, exprNames, exprVals, err := buildUpdateExpression(updates)
	if err != nil {
		return err
	}

	key, err := attributevalue.MarshalMap(map[string]string{"id": id.String()})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                &d.table,
		Key:                      key,
		UpdateExpression:         &expr,
		ExpressionAttributeNames: exprNames,
	}
	// DynamoDB rejects an empty value map on REMOVE-only expressions.
	if len(exprVals) > 0 {
		input.ExpressionAttributeValues = exprVals
	}

	if _, err = d.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("update item failed: %w", err)
	}
	return nil
}

func (d *DynamoCategoryAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	// Soft delete
	now := time.Now().UTC().Format(time.RFC3339)
	return d.Update(ctx, id, map[string]interface{}{
		"deleted_at": now,
		"updated_at": now,
	})
}
