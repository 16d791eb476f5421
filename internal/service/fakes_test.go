package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/lib/logger"
	"github.com/linemk/grocery-shop/internal/storage"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return logger.Discard()
}

type fakeUserRepo struct {
	users map[string]*models.User // ключ — email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// fakeShop хранит каталог, корзины, заказы, категории и избранное в памяти и реализует их репозитории.
// Транзакция игнорируется: её начало и завершение проверяются через sqlmock.
type fakeShop struct {
	mu          sync.Mutex
	products    map[int64]*models.Product
	carts       map[int64]map[int64]int // userID -> productID -> quantity
	orders      []*models.Order
	nextOrderID int64
	categories  map[int64]*models.Category
	wishlists   map[int64]map[int64]*models.WishlistItem // userID -> productID -> item
	nextID      int64

	lockCartErrs     []error // ошибка на каждый очередной вызов LockCartTx
	createLinesErr   error
	reverseCartOrder bool
	lockedProductIDs [][]int64
	reserveCalls     int
	snapshotCalls    int
}

var (
	_ storage.CartStorage    = (*fakeShop)(nil)
	_ storage.ProductStorage = (*fakeShop)(nil)
	_ storage.OrderStorage    = (*fakeShop)(nil)
	_ storage.CategoryStorage = (*fakeShop)(nil)
	_ storage.WishlistStorage = (*fakeShop)(nil)
)

func newFakeShop() *fakeShop {
	return &fakeShop{
		products:    make(map[int64]*models.Product),
		carts:       make(map[int64]map[int64]int),
		nextOrderID: 1,
		categories:  make(map[int64]*models.Category),
		wishlists:   make(map[int64]map[int64]*models.WishlistItem),
		nextID:      100,
	}
}

func (f *fakeShop) addCategory(id int64, name, slug string) {
	f.categories[id] = &models.Category{ID: id, Name: name, Slug: slug}
}

func (f *fakeShop) categoryIDBySlug(slug string) (int64, bool) {
	for _, c := range f.categories {
		if c.Slug == slug {
			return c.ID, true
		}
	}
	return 0, false
}

func (f *fakeShop) addProduct(id int64, name, price string, stock int) {
	f.products[id] = &models.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func (f *fakeShop) putInCart(userID, productID int64, quantity int) {
	if f.carts[userID] == nil {
		f.carts[userID] = make(map[int64]int)
	}
	f.carts[userID][productID] = quantity
}

func (f *fakeShop) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

func (f *fakeShop) cartLines(userID int64) []*models.CartLine {
	ids := make([]int64, 0, len(f.carts[userID]))
	for id := range f.carts[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]*models.CartLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, &models.CartLine{UserID: userID, ProductID: id, Quantity: f.carts[userID][id]})
	}
	return lines
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	return &c
}

// ---- CartStorage ----

func (f *fakeShop) GetCartSnapshot(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++

	lines := f.cartLines(userID)
	for _, line := range lines {
		if p, ok := f.products[line.ProductID]; ok {
			line.Product = copyProduct(p)
		}
	}
	return lines, nil
}

func (f *fakeShop) LockCartTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.lockCartErrs) > 0 {
		err := f.lockCartErrs[0]
		f.lockCartErrs = f.lockCartErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	lines := f.cartLines(userID)
	if f.reverseCartOrder {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	return lines, nil
}

func (f *fakeShop) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.carts[userID]))
	delete(f.carts, userID)
	return n, nil
}

func (f *fakeShop) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[productID]; !ok {
		return nil, storage.ErrProductNotFound
	}
	if f.carts[userID] == nil {
		f.carts[userID] = make(map[int64]int)
	}
	f.carts[userID][productID] += quantity
	return &models.CartLine{UserID: userID, ProductID: productID, Quantity: f.carts[userID][productID]}, nil
}

func (f *fakeShop) RemoveItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.carts[userID][productID]
	if !ok {
		return nil, storage.ErrCartLineNotFound
	}
	if quantity > 0 && current > quantity {
		f.carts[userID][productID] = current - quantity
		return &models.CartLine{UserID: userID, ProductID: productID, Quantity: current - quantity}, nil
	}
	delete(f.carts[userID], productID)
	return nil, nil
}

// ---- ProductStorage ----

func (f *fakeShop) LockProductsTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockedProductIDs = append(f.lockedProductIDs, append([]int64(nil), ids...))

	res := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			res[id] = copyProduct(p)
		}
	}
	return res, nil
}

func (f *fakeShop) ReserveStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++

	p, ok := f.products[productID]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	if p.Stock < quantity {
		return nil, &storage.ShortfallError{ProductID: productID, Requested: quantity, Available: p.Stock}
	}
	p.Stock -= quantity
	p.TotalSold += quantity
	return copyProduct(p), nil
}

func (f *fakeShop) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (f *fakeShop) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	categoryID, known := f.categoryIDBySlug(filter.Category)
	res := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		if filter.Category != "" && (!known || p.CategoryID == nil || *p.CategoryID != categoryID) {
			continue
		}
		res = append(res, copyProduct(p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeShop) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Name == product.Name {
			return nil, storage.ErrProductExists
		}
	}
	if product.CategoryID != nil {
		if _, ok := f.categories[*product.CategoryID]; !ok {
			return nil, storage.ErrCategoryNotFound
		}
	}
	stored := copyProduct(product)
	stored.ID = int64(len(f.products) + 1)
	stored.CreatedAt = time.Now()
	f.products[stored.ID] = stored
	return copyProduct(stored), nil
}

func (f *fakeShop) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	if patch.Name != nil {
		for _, other := range f.products {
			if other.ID != id && other.Name == *patch.Name {
				return nil, storage.ErrProductExists
			}
		}
	}
	if patch.CategoryID != nil {
		if _, ok := f.categories[*patch.CategoryID]; !ok {
			return nil, storage.ErrCategoryNotFound
		}
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		cid := *patch.CategoryID
		p.CategoryID = &cid
	}
	return copyProduct(p), nil
}

// DeleteProduct повторяет каскады схемы: корзины и избранное очищаются, в позициях заказов товар обнуляется.
func (f *fakeShop) DeleteProduct(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	for _, cart := range f.carts {
		delete(cart, id)
	}
	for _, items := range f.wishlists {
		delete(items, id)
	}
	for _, o := range f.orders {
		for i := range o.Lines {
			if o.Lines[i].ProductID != nil && *o.Lines[i].ProductID == id {
				o.Lines[i].ProductID = nil
			}
		}
	}
	return nil
}

func (f *fakeShop) AddStock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	p.Stock += quantity
	return copyProduct(p), nil
}

func (f *fakeShop) GetSalesReport(ctx context.Context, sort, category string) ([]*models.SalesReportRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var report []*models.SalesReportRow
	for _, p := range f.products {
		if p.TotalSold == 0 {
			continue
		}
		row := &models.SalesReportRow{ProductID: p.ID, Product: p.Name, Sold: p.TotalSold, Stock: p.Stock}
		if p.CategoryID != nil {
			if c, ok := f.categories[*p.CategoryID]; ok {
				name := c.Name
				row.Category = &name
				if category != "" && c.Slug != category {
					continue
				}
			}
		} else if category != "" {
			continue
		}
		report = append(report, row)
	}
	return report, nil
}

func (f *fakeShop) GetLowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.Product
	for _, p := range f.products {
		if p.Stock <= threshold {
			res = append(res, copyProduct(p))
		}
	}
	return res, nil
}

// ---- CategoryStorage ----

func (f *fakeShop) ListCategories(ctx context.Context) ([]*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]*models.Category, 0, len(f.categories))
	for _, c := range f.categories {
		cc := *c
		res = append(res, &cc)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (f *fakeShop) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrCategoryNotFound
	}
	cc := *c
	return &cc, nil
}

func (f *fakeShop) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categoryIDBySlug(slug); ok {
		return nil, storage.ErrCategoryExists
	}
	f.nextID++
	c := &models.Category{ID: f.nextID, Name: name, Slug: slug}
	f.categories[c.ID] = c
	cc := *c
	return &cc, nil
}

func (f *fakeShop) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrCategoryNotFound
	}
	if patch.Slug != nil {
		if other, ok := f.categoryIDBySlug(*patch.Slug); ok && other != id {
			return nil, storage.ErrCategoryExists
		}
		c.Slug = *patch.Slug
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	cc := *c
	return &cc, nil
}

func (f *fakeShop) DeleteCategory(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return storage.ErrCategoryNotFound
	}
	delete(f.categories, id)
	for _, p := range f.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	return nil
}

// ---- WishlistStorage ----

func (f *fakeShop) ToggleItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wishlists[userID][productID]; ok {
		delete(f.wishlists[userID], productID)
		return nil, false, nil
	}
	if _, ok := f.products[productID]; !ok {
		return nil, false, storage.ErrProductNotFound
	}
	if f.wishlists[userID] == nil {
		f.wishlists[userID] = make(map[int64]*models.WishlistItem)
	}
	f.nextID++
	item := &models.WishlistItem{ID: f.nextID, UserID: userID, ProductID: productID, CreatedAt: time.Now()}
	f.wishlists[userID][productID] = item
	c := *item
	return &c, true, nil
}

func (f *fakeShop) ListItems(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]*models.WishlistItem, 0, len(f.wishlists[userID]))
	for _, item := range f.wishlists[userID] {
		c := *item
		c.Product = copyProduct(f.products[item.ProductID])
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ---- OrderStorage ----

func (f *fakeShop) CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, total decimal.Decimal) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := &models.Order{ID: f.nextOrderID, UserID: userID, TotalAmount: total, CreatedAt: time.Now()}
	f.nextOrderID++
	f.orders = append(f.orders, order)
	return &models.Order{ID: order.ID, UserID: userID, TotalAmount: total, CreatedAt: order.CreatedAt}, nil
}

func (f *fakeShop) CreateOrderLinesTx(ctx context.Context, tx *sql.Tx, orderID int64, lines []models.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createLinesErr != nil {
		return f.createLinesErr
	}
	for i := range lines {
		lines[i].ID = int64(i + 1)
		lines[i].OrderID = orderID
	}
	for _, o := range f.orders {
		if o.ID == orderID {
			o.Lines = append([]models.OrderLine(nil), lines...)
		}
	}
	return nil
}

func (f *fakeShop) GetOrderByID(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID && o.UserID == userID {
			c := *o
			return &c, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeShop) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			c := *f.orders[i]
			res = append(res, &c)
		}
	}
	return res, nil
}

// fakeOrderCache кэш в памяти со счётчиками обращений
type fakeOrderCache struct {
	mu     sync.Mutex
	views  map[[2]int64]*models.OrderView
	setErr error
	getErr error
	hits   int
	sets   int
}

func newFakeOrderCache() *fakeOrderCache {
	return &fakeOrderCache{views: make(map[[2]int64]*models.OrderView)}
}

func (c *fakeOrderCache) Get(ctx context.Context, userID, orderID int64) (*models.OrderView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.views[[2]int64{userID, orderID}]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *fakeOrderCache) Set(ctx context.Context, order *models.OrderView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.views[[2]int64{order.UserID, order.ID}] = order
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.OrderView
	err       error
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, order *models.OrderView) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, order)
	return nil
}
